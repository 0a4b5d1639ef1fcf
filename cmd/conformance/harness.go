package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/anirudhraja/protocore"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/schema"
)

// conformanceProto is the subset of conformance.proto the runner speaks.
const conformanceProto = `syntax = "proto3";
package conformance;

enum WireFormat {
  UNSPECIFIED = 0;
  PROTOBUF = 1;
  JSON = 2;
  JSPB = 3;
  TEXT_FORMAT = 4;
}

enum TestCategory {
  UNSPECIFIED_TEST = 0;
  BINARY_TEST = 1;
  JSON_TEST = 2;
  JSON_IGNORE_UNKNOWN_PARSING_TEST = 3;
  JSPB_TEST = 5;
  TEXT_FORMAT_TEST = 6;
}

message FailureSet {
  repeated string failure = 1;
}

message ConformanceRequest {
  oneof payload {
    bytes protobuf_payload = 1;
    string json_payload = 2;
    string jspb_payload = 7;
    string text_payload = 8;
  }
  WireFormat requested_output_format = 3;
  string message_type = 4;
  TestCategory test_category = 5;
  bool print_unknown_fields = 9;
}

message ConformanceResponse {
  oneof result {
    string parse_error = 1;
    string serialize_error = 6;
    string timeout_error = 9;
    string runtime_error = 2;
    bytes protobuf_payload = 3;
    string json_payload = 4;
    string skipped = 5;
    string jspb_payload = 7;
    string text_payload = 8;
  }
}
`

const wireFormatProtobuf descriptor.EnumNumber = 1

// Harness answers conformance runner requests. Requests and responses are
// themselves dynamic messages.
type Harness struct {
	pc   *protocore.Protocore
	req  *descriptor.Message
	resp *descriptor.Message
}

// NewHarness loads the conformance protocol schema into pc.
func NewHarness(pc *protocore.Protocore) (*Harness, error) {
	pf, err := schema.ParseProto("conformance/conformance.proto", strings.NewReader(conformanceProto))
	if err != nil {
		return nil, err
	}
	if err := pc.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{pf.Name: pf}}); err != nil {
		return nil, err
	}
	return &Harness{
		pc:   pc,
		req:  pc.Registry().FindMessage("conformance.ConformanceRequest"),
		resp: pc.Registry().FindMessage("conformance.ConformanceResponse"),
	}, nil
}

// ServeConformanceRequest handles one length-prefixed request. It reports
// true once r is exhausted.
func (h *Harness) ServeConformanceRequest(r io.Reader, w io.Writer) (bool, error) {
	var lenBuf [4]byte
	_, err := io.ReadFull(r, lenBuf[:])
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read length: %w", err)
	}

	inLen := binary.LittleEndian.Uint32(lenBuf[:])
	inBytes := make([]byte, inLen)
	if _, err := io.ReadFull(r, inBytes); err != nil {
		return false, fmt.Errorf("read request: %w", err)
	}

	req, err := message.Parse(h.req, inBytes)
	if err != nil {
		return false, fmt.Errorf("parse ConformanceRequest: %w", err)
	}

	outBytes, err := message.Marshal(h.RunTest(req))
	if err != nil {
		return false, fmt.Errorf("marshal response: %w", err)
	}

	var outLen [4]byte
	binary.LittleEndian.PutUint32(outLen[:], uint32(len(outBytes)))

	if _, err := w.Write(outLen[:]); err != nil {
		return false, fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(outBytes); err != nil {
		return false, fmt.Errorf("write response: %w", err)
	}
	return false, nil
}

// RunTest computes the response to one ConformanceRequest.
func (h *Harness) RunTest(req *message.Message) *message.Message {
	get := func(name string) any { return req.Get(h.req.FieldByName(name)) }
	messageType, _ := get("message_type").(string)

	if messageType == "" {
		return h.result("parse_error", "no message type provided")
	}
	if strings.Contains(messageType, ".editions.") {
		return h.result("skipped", "editions not supported")
	}

	payload := req.WhichOneof(h.req.FieldByName("protobuf_payload").ContainingOneof())
	if payload == nil {
		return h.result("parse_error", "unknown or missing payload type")
	}
	if payload.Name() != "protobuf_payload" {
		return h.result("skipped", payload.Name()+" input not supported")
	}
	if get("requested_output_format") != wireFormatProtobuf {
		return h.result("skipped", "only protobuf output is supported")
	}

	data, _ := req.Get(payload).([]byte)
	m, err := h.pc.Parse(data, messageType)
	if err != nil {
		return h.result("parse_error", fmt.Sprintf("parse error: %v", err))
	}
	out, err := h.pc.Marshal(m)
	if err != nil {
		return h.result("serialize_error", fmt.Sprintf("serialize error: %v", err))
	}
	return h.result("protobuf_payload", out)
}

func (h *Harness) result(field string, v any) *message.Message {
	resp := message.New(h.resp)
	// The response schema is fixed above, so Set cannot fail.
	_ = resp.Set(h.resp.FieldByName(field), v)
	return resp
}
