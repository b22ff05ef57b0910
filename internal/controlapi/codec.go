package controlapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a JSON-serialisable object into a Struct, so domain
// types only need json tags to cross the control surface.
func ToStruct(v any) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := encode(v, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToList converts a JSON-serialisable slice into a ListValue.
func ToList(v any) (*structpb.ListValue, error) {
	out := &structpb.ListValue{}
	if err := encode(v, out); err != nil {
		return nil, err
	}
	return out, nil
}

func encode(v any, dst proto.Message) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	if err := protojson.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("convert %T: %w", v, err)
	}
	return nil
}

// Decode is the inverse of ToStruct and ToList.
func Decode(m proto.Message, dst any) error {
	b, err := protojson.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Pretty renders m as indented JSON for terminal output.
func Pretty(m proto.Message) string {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Format(m)
}
