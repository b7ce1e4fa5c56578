package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeFile reads a YAML or JSON document from path ("-" for stdin) into out,
// using out's JSON tags.
func DecodeFile(path string, stdin io.Reader, out any) error {
	var raw []byte

	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}

	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting %s: %w", path, err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}
