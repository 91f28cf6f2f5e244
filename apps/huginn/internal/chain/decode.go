package chain

import (
	"errors"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	undelegateAction = "/cosmos.staking.v1beta1.MsgUndelegate"

	// Field numbers shared by cosmos.tx.v1beta1.Tx and TxRaw (body / body_bytes), TxBody
	// (messages) and google.protobuf.Any (type_url).
	txBodyField      protowire.Number = 1
	bodyMessageField protowire.Number = 1
	anyTypeURLField  protowire.Number = 1
)

var errNoBody = errors.New("tx has no body")

// UnbondQuery is the tx_search query matching undelegations sent by address.
func UnbondQuery(address string) string {
	return "message.sender='" + address + "' AND message.action='" + undelegateAction + "'"
}

// IsUndelegate matches MsgUndelegate type URLs.
func IsUndelegate(typeURL string) bool {
	return strings.Contains(typeURL, "MsgUndelegate")
}

// MessageTypeURLs decodes a protobuf-encoded Cosmos transaction and returns the type URL of
// every message in its body.
func MessageTypeURLs(txBytes []byte) ([]string, error) {
	var body []byte
	err := walkBytesFields(txBytes, func(num protowire.Number, v []byte) error {
		if num == txBodyField && body == nil {
			body = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errNoBody
	}

	var typeURLs []string
	err = walkBytesFields(body, func(num protowire.Number, v []byte) error {
		if num != bodyMessageField {
			return nil
		}
		typeURL, err := anyTypeURL(v)
		if err != nil {
			return err
		}
		typeURLs = append(typeURLs, typeURL)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return typeURLs, nil
}

func anyTypeURL(b []byte) (string, error) {
	var typeURL string
	err := walkBytesFields(b, func(num protowire.Number, v []byte) error {
		if num == anyTypeURLField {
			typeURL = string(v)
		}
		return nil
	})
	return typeURL, err
}

// walkBytesFields calls visit for each length-delimited field of a message and skips the rest.
func walkBytesFields(b []byte, visit func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}

		v, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		if err := visit(num, v); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}
