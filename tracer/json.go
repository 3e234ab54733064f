package tracer

import (
	"encoding/json"
	"fmt"
	"os"
)

func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	var trace Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("decode trace %s: %w", path, err)
	}
	return &trace, nil
}

func (me *Trace) Save(path string) error {
	data, err := json.Marshal(me)
	if err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}
