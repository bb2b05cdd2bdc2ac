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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingOptions matches MissingOptionsError with errors.Is.
	ErrMissingOptions = errors.New("missing mandatory options")
	// ErrUnknownOptions matches UnknownOptionsError with errors.Is.
	ErrUnknownOptions = errors.New("unknown options")
	// ErrSchemaInvalid matches SchemaError with errors.Is.
	ErrSchemaInvalid = errors.New("option failed schema validation")
)

// MissingOptionsError lists the mandatory keys absent from the user configuration.
type MissingOptionsError struct {
	Keys []string
}

func (e *MissingOptionsError) Error() string {
	return fmt.Sprintf("missing mandatory options: %s", strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrMissingOptions.
func (e *MissingOptionsError) Is(target error) bool {
	return target == ErrMissingOptions
}

// UnknownOptionsError lists user keys that were never declared.
type UnknownOptionsError struct {
	Keys []string
}

func (e *UnknownOptionsError) Error() string {
	return fmt.Sprintf("unknown options: %s", strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrUnknownOptions.
func (e *UnknownOptionsError) Is(target error) bool {
	return target == ErrUnknownOptions
}

// SchemaError reports the first key whose value failed its schema.
// Value is already masked when the option is secret.
type SchemaError struct {
	Key    string
	Value  any
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("option %q with value %v failed schema validation: %s", e.Key, e.Value, e.Detail)
}

// Is reports whether target is ErrSchemaInvalid.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaInvalid
}
