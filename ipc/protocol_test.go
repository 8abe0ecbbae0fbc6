package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func TestEnvelopeFraming(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeMove, MoveCommand{CreatureID: 7, X: 3, Y: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteEnvelope(&buf, env); err != nil {
		t.Fatal(err)
	}

	prefix := binary.LittleEndian.Uint32(buf.Bytes()[:4])
	if int(prefix) != buf.Len()-4 {
		t.Fatalf("prefix = %d, payload = %d bytes", prefix, buf.Len()-4)
	}

	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeMove {
		t.Errorf("type = %q", got.Type)
	}
	var cmd MoveCommand
	if err := json.Unmarshal(got.Data, &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.CreatureID != 7 || cmd.X != 3 || cmd.Y != 4 {
		t.Errorf("cmd = %+v", cmd)
	}
}

func TestReadEnvelopeRejectsBadLength(t *testing.T) {
	tests := []struct {
		name   string
		length uint32
	}{
		{"zero", 0},
		{"too large", MaxFrame + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			binary.Write(&buf, binary.LittleEndian, tt.length)
			if _, err := ReadEnvelope(&buf); err == nil || !strings.Contains(err.Error(), "invalid message length") {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestReadEnvelopeTruncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(10))
	buf.WriteString("{}")
	if _, err := ReadEnvelope(&buf); err == nil {
		t.Fatal("expected error on short payload")
	}
}

func TestConnectionDispatch(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := NewConnection(server, nil)
	c.RegisterHandler(TypeHello, func(env Envelope) (*Envelope, error) {
		var hello HelloMessage
		if err := json.Unmarshal(env.Data, &hello); err != nil {
			return nil, err
		}
		ack, err := NewEnvelope(TypeAck, AckMessage{Status: "hi " + hello.Player})
		return &ack, err
	})
	c.RegisterHandler(TypeGameState, func(Envelope) (*Envelope, error) {
		return nil, fmt.Errorf("creature 3: %w", ErrCloseSession)
	})
	done := make(chan struct{})
	go func() {
		c.ReadLoop()
		close(done)
	}()

	send := func(msgType string, data any) {
		t.Helper()
		env, err := NewEnvelope(msgType, data)
		if err != nil {
			t.Fatal(err)
		}
		if err := WriteEnvelope(client, env); err != nil {
			t.Fatal(err)
		}
	}

	send(TypeHello, HelloMessage{Player: "keeper"})
	resp, err := ReadEnvelope(client)
	if err != nil {
		t.Fatal(err)
	}
	var ack AckMessage
	json.Unmarshal(resp.Data, &ack)
	if resp.Type != TypeAck || ack.Status != "hi keeper" {
		t.Errorf("resp = %s %s", resp.Type, resp.Data)
	}

	send(TypeGameState, struct{}{})
	resp, err = ReadEnvelope(client)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Type != TypeError {
		t.Errorf("type = %q, want %q", resp.Type, TypeError)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLoop did not return after a fatal handler error")
	}
}
