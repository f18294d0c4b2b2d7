package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
)

func Serialize(msg Message) ([]byte, error) {
	payload, err := ToJson(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SerializedMessage{
		Type:    msg.GetType(),
		Payload: payload,
	})
}

func Deserialize(jsonBytes []byte) (Message, error) {
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, err
	}

	return DeserializeSerializedMessage(&wrapper)
}

func DeserializeSerializedMessage(wrapper *SerializedMessage) (Message, error) {
	msg, err := CreateMessage(wrapper.Type, typeRegistry)
	if err != nil {
		return nil, err
	}

	if err := FromJson(wrapper.Payload, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// CompressMessage gzips an outbound frame.
func CompressMessage(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecompressMessage inflates a gzip-compressed binary frame from the client.
func DecompressMessage(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
