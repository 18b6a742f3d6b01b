package codec

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec handles MessagePack import/export
type MsgpackCodec struct{}

// NewMsgpackCodec creates a new MessagePack codec
func NewMsgpackCodec() *MsgpackCodec {
	return &MsgpackCodec{}
}

// Format returns the codec format identifier
func (c *MsgpackCodec) Format() string {
	return "msgpack"
}

// Parse imports a snapshot from MessagePack
func (c *MsgpackCodec) Parse(r io.Reader) (*Snapshot, error) {
	var snapshot Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse msgpack: %w", err)
	}
	return &snapshot, nil
}

// Export exports a snapshot to MessagePack
func (c *MsgpackCodec) Export(snapshot *Snapshot, w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}
