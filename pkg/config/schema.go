// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const coerceKeyword = "coerce"

// schema is a compiled option schema.
type schema struct {
	compiled *gojsonschema.Schema
	typ      string
	coerce   bool
}

func compileSchema(raw map[string]any) (*schema, error) {
	if raw == nil {
		return nil, nil
	}

	doc := make(map[string]any, len(raw))
	s := &schema{}
	for k, v := range raw {
		if k == coerceKeyword {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%q must be a boolean, got %T", coerceKeyword, v)
			}
			s.coerce = b
			continue
		}
		doc[k] = v
	}
	if t, ok := doc["type"].(string); ok {
		s.typ = t
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	s.compiled = compiled
	return s, nil
}

// validate checks v against the schema and returns the value to keep,
// which differs from v only when coercion applied.
func (s *schema) validate(v any) (any, error) {
	if s == nil {
		return v, nil
	}
	if s.coerce {
		v = coerce(v, s.typ)
	}

	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return v, nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.Description())
	}
	return nil, fmt.Errorf("%s", strings.Join(details, "; "))
}

// coerce converts string input to the declared scalar type.
// Values that do not parse are returned unchanged so the schema reports them.
func coerce(v any, typ string) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)

	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return int(n)
		}
	case "number":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return v
}
