package httpqueue

import "encoding/json"

// itemPair is the wire shape of a read-any response: [key, value].
type itemPair struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (p itemPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Value})
}

func (p *itemPair) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Value = pair[1]
	return json.Unmarshal(pair[0], &p.Key)
}

type notFoundBody struct {
	Key string `json:"key"`
}

type queueErrorBody struct {
	Message string `json:"message"`
}
