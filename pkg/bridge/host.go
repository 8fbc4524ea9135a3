package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	log "github.com/charmbracelet/log"

	"github.com/awsbridge/aws-profile-bridge/pkg/engine"
	"github.com/awsbridge/aws-profile-bridge/pkg/profile"
)

// Service is the slice of the engine the host dispatches to.
type Service interface {
	ListProfiles(ctx context.Context, depth profile.Depth) []profile.Profile
	ConsoleURL(ctx context.Context, name string) (string, error)
}

// Request is a message from the extension.
type Request struct {
	Action  string `json:"action"`
	Profile string `json:"profile,omitempty"`
}

// Response is a message to the extension. Exactly one of the payload fields
// is populated, matching Action.
type Response struct {
	Action   string               `json:"action"`
	Profiles []profile.Profile    `json:"profiles,omitempty"`
	Profile  string               `json:"profile,omitempty"`
	URL      string               `json:"url,omitempty"`
	Error    *engine.ErrorPayload `json:"error,omitempty"`
}

// Host runs the native messaging session: read a request, dispatch, write
// the response, until the extension closes the stream.
type Host struct {
	service Service
	reader  *Reader
	writer  *Writer
}

// NewHost builds a host over the given streams.
func NewHost(service Service, in io.Reader, out io.Writer) *Host {
	return &Host{service: service, reader: NewReader(in), writer: NewWriter(out)}
}

// Run serves requests until EOF or ctx cancellation. A clean EOF returns
// nil.
func (h *Host) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := h.reader.ReadMessage()
		if errors.Is(err, io.EOF) {
			log.Debug("extension closed the stream")
			return nil
		}
		if err != nil {
			return err
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			if werr := h.writer.WriteMessage(errorResponse(errors.New("malformed request"))); werr != nil {
				return werr
			}
			continue
		}

		if err := h.writer.WriteMessage(h.handle(ctx, req)); err != nil {
			return err
		}
	}
}

func (h *Host) handle(ctx context.Context, req Request) Response {
	log.Debug("handling request", "action", req.Action, "profile", req.Profile)

	switch req.Action {
	case "ping":
		return Response{Action: "pong"}

	case "get_profiles":
		return Response{Action: "profiles", Profiles: h.service.ListProfiles(ctx, profile.DepthFast)}

	case "enrich_sso_profiles":
		return Response{Action: "profiles", Profiles: h.service.ListProfiles(ctx, profile.DepthFull)}

	case "get_console_url":
		if req.Profile == "" {
			return errorResponse(errors.New("get_console_url requires a profile"))
		}
		url, err := h.service.ConsoleURL(ctx, req.Profile)
		if err != nil {
			log.Warn("console url request failed", "profile", req.Profile, "kind", engine.Classify(err))
			return errorResponse(err)
		}
		return Response{Action: "console_url", Profile: req.Profile, URL: url}

	default:
		return errorResponse(errors.New("unknown action: " + req.Action))
	}
}

func errorResponse(err error) Response {
	payload := engine.PayloadFor(err)
	return Response{Action: "error", Error: &payload}
}
