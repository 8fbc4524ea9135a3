package main

import (
	"os"

	"github.com/awsbridge/aws-profile-bridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
