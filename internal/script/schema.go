/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed script.schema.json
var schemaJSON []byte

// SchemaJSON returns the JSON schema of the canonical script format.
func SchemaJSON() []byte { return append([]byte(nil), schemaJSON...) }

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// AssemblyError reports a script that does not satisfy the schema.
type AssemblyError struct {
	Violations []string
	Err        error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return "script assembly: " + e.Err.Error()
	}
	if len(e.Violations) == 1 {
		return "script violates schema: " + e.Violations[0]
	}
	return fmt.Sprintf("script violates schema (%d violations): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// validateJSON checks a marshalled script against the embedded schema.
func validateJSON(doc []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return &AssemblyError{Err: fmt.Errorf("compile schema: %w", err)}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &AssemblyError{Err: fmt.Errorf("validate: %w", err)}
	}
	if res.Valid() {
		return nil
	}
	ae := &AssemblyError{}
	for _, re := range res.Errors() {
		ae.Violations = append(ae.Violations, re.String())
	}
	return ae
}

// Decode parses a script.json payload and checks it against the schema.
func Decode(data []byte) (*Script, error) {
	if err := validateJSON(data); err != nil {
		return nil, err
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if s.Scenes == nil {
		s.Scenes = []Scene{}
	}
	return &s, nil
}
