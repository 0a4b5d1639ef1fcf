package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protocore"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

func newTestHarness(t *testing.T) *Harness {
	t.Helper()
	h, err := NewHarness(protocore.New())
	require.NoError(t, err)
	return h
}

func (h *Harness) request(t *testing.T, fields map[string]any) *message.Message {
	t.Helper()
	req := message.New(h.req)
	for name, v := range fields {
		require.NoError(t, req.Set(h.req.FieldByName(name), v))
	}
	return req
}

func (h *Harness) resultOf(resp *message.Message) (string, any) {
	fd := resp.WhichOneof(h.resp.Oneofs()[0])
	if fd == nil {
		return "", nil
	}
	return fd.Name(), resp.Get(fd)
}

func TestRunTest(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	failures := protowire.AppendString(protowire.AppendTag(nil, 1, protowire.BytesType), "Recommended.Proto3.X")
	protobufOut := descriptor.EnumNumber(1)

	tests := []struct {
		name      string
		fields    map[string]any
		wantField string
		want      any
	}{
		{
			name:      "roundtrip",
			fields:    map[string]any{"message_type": "conformance.FailureSet", "protobuf_payload": failures, "requested_output_format": protobufOut},
			wantField: "protobuf_payload",
			want:      failures,
		},
		{
			name:      "missing_type",
			fields:    map[string]any{"protobuf_payload": failures},
			wantField: "parse_error",
			want:      "no message type provided",
		},
		{
			name:      "json_input",
			fields:    map[string]any{"message_type": "conformance.FailureSet", "json_payload": "{}", "requested_output_format": protobufOut},
			wantField: "skipped",
			want:      "json_payload input not supported",
		},
		{
			name:      "json_output",
			fields:    map[string]any{"message_type": "conformance.FailureSet", "protobuf_payload": failures, "requested_output_format": descriptor.EnumNumber(2)},
			wantField: "skipped",
			want:      "only protobuf output is supported",
		},
		{
			name:      "no_payload",
			fields:    map[string]any{"message_type": "conformance.FailureSet"},
			wantField: "parse_error",
			want:      "unknown or missing payload type",
		},
		{
			name:      "editions",
			fields:    map[string]any{"message_type": "protobuf_test_messages.editions.TestAllTypesEdition2023", "protobuf_payload": failures},
			wantField: "skipped",
			want:      "editions not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, got := h.resultOf(h.RunTest(h.request(t, tt.fields)))
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("parse_error", func(t *testing.T) {
		req := h.request(t, map[string]any{
			"message_type":            "conformance.FailureSet",
			"protobuf_payload":        []byte{0x0a, 0x05},
			"requested_output_format": protobufOut,
		})
		field, got := h.resultOf(h.RunTest(req))
		assert.Equal(t, "parse_error", field)
		assert.Contains(t, got, "truncated")
	})
}

func TestServeConformanceRequest(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	req := h.request(t, map[string]any{
		"message_type":            "conformance.FailureSet",
		"protobuf_payload":        []byte{},
		"requested_output_format": descriptor.EnumNumber(1),
	})
	body, err := message.Marshal(req)
	require.NoError(t, err)

	var in bytes.Buffer
	require.NoError(t, binary.Write(&in, binary.LittleEndian, uint32(len(body))))
	in.Write(body)

	var out bytes.Buffer
	done, err := h.ServeConformanceRequest(&in, &out)
	require.NoError(t, err)
	assert.False(t, done)

	n := binary.LittleEndian.Uint32(out.Bytes()[:4])
	resp, err := message.Parse(h.resp, out.Bytes()[4:])
	require.NoError(t, err)
	assert.Equal(t, int(n), out.Len()-4)
	field, got := h.resultOf(resp)
	assert.Equal(t, "protobuf_payload", field)
	assert.Empty(t, got)

	done, err = h.ServeConformanceRequest(&in, &out)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = h.ServeConformanceRequest(bytes.NewReader([]byte{1, 0}), &out)
	assert.Error(t, err)
}
