// Command conformance is a testee for the protobuf conformance runner. It
// reads length-prefixed ConformanceRequests on stdin and answers on stdout,
// round-tripping binary payloads through protocore.
package main

import (
	"os"

	"github.com/anirudhraja/protocore"
	"github.com/anirudhraja/protocore/internal/logging"
)

var testMessageFiles = []string{
	"google/protobuf/test_messages_proto3.proto",
	"google/protobuf/test_messages_proto2.proto",
}

func main() {
	logging.ConfigureRuntime()
	log := logging.Logger()

	protosRoot := os.Getenv("PROTOCORE_PROTOS_DIR")
	if protosRoot == "" {
		protosRoot = "cmd/conformance/protos"
	}
	pc := protocore.New(protocore.WithProtoDirectories(protosRoot), protocore.WithLogger(log))
	for _, file := range testMessageFiles {
		if err := pc.LoadSchemaFromFile(file); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to load schema")
		}
	}

	h, err := NewHarness(pc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load conformance schema")
	}

	totalRuns := 0
	for {
		done, err := h.ServeConformanceRequest(os.Stdin, os.Stdout)
		if err != nil {
			log.Fatal().Err(err).Msg("conformance: fatal error")
		}
		if done {
			break
		}
		totalRuns++
	}

	log.Info().Int("tests", totalRuns).Msg("conformance: received EOF")
}
