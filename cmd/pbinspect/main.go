// Command pbinspect decodes protobuf messages against .proto schemas loaded
// at runtime and prints them, without generated code.
//
//	pbinspect -I proto -proto acme/v1/user.proto -type acme.v1.User -in user.bin
//	pbinspect -dump -in user.bin
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/protocolbuffers/protoscope"

	"github.com/anirudhraja/protocore"
	"github.com/anirudhraja/protocore/config"
	"github.com/anirudhraja/protocore/internal/logging"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		includes stringList
		protos   stringList
	)
	configPath := flag.String("config", "", "TOML settings file")
	flag.Var(&includes, "I", "directory searched for .proto files (repeatable)")
	flag.Var(&protos, "proto", ".proto file to load, relative to a -I directory (repeatable)")
	typeName := flag.String("type", "", "message type of the input")
	input := flag.String("in", "-", "input file, - for stdin")
	hexInput := flag.Bool("hex", false, "input is hex encoded")
	dump := flag.Bool("dump", false, "print the input as protoscope without a schema")
	list := flag.Bool("list", false, "list the loaded message, enum and service types")
	fields := flag.Bool("fields", false, "print the accessors of -type instead of decoding")
	reencode := flag.String("out", "", "write the re-encoded message to this file")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Logger()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal().Err(err).Msg("config")
		}
	}
	if len(includes) > 0 {
		cfg.ProtoDirectories = includes
	}

	if *dump {
		data, err := readInput(*input, *hexInput)
		if err != nil {
			log.Fatal().Err(err).Msg("read input")
		}
		fmt.Print(protoscope.Write(data, protoscope.WriterOptions{}))
		return
	}

	p := protocore.New(cfg.Options(log)...)
	for _, file := range protos {
		if err := p.LoadSchemaFromFile(file); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("load schema")
		}
	}

	switch {
	case *list:
		printList(os.Stdout, "message", p.ListMessages())
		printList(os.Stdout, "enum", p.ListEnums())
		printList(os.Stdout, "service", p.ListServices())
		return
	case *typeName == "":
		log.Fatal().Msg("-type is required")
	case *fields:
		table, err := p.Accessors(*typeName)
		if err != nil {
			log.Fatal().Err(err).Msg("accessors")
		}
		printAccessors(os.Stdout, table)
		return
	}

	data, err := readInput(*input, *hexInput)
	if err != nil {
		log.Fatal().Err(err).Msg("read input")
	}
	m, err := p.Parse(data, *typeName)
	if err != nil {
		log.Fatal().Err(err).Str("type", *typeName).Msg("parse")
	}
	printMessage(os.Stdout, m, 0)

	if *reencode != "" {
		out, err := p.Marshal(m)
		if err != nil {
			log.Fatal().Err(err).Msg("marshal")
		}
		if err := os.WriteFile(*reencode, out, 0o644); err != nil {
			log.Fatal().Err(err).Msg("write output")
		}
		log.Info().Str("file", *reencode).Int("bytes", len(out)).Msg("re-encoded")
	}
}

func readInput(path string, isHex bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil || !isHex {
		return data, err
	}
	return hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
}

func printList(w io.Writer, kind string, names []string) {
	for _, n := range names {
		fmt.Fprintf(w, "%-8s %s\n", kind, n)
	}
}
