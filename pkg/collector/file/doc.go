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

// Package file parses small line-oriented system files such as
// /etc/os-release and /proc/stat.
//
// A Parser reads a file (bounded by a maximum size and required to be valid
// UTF-8), splits it into trimmed, non-empty lines, drops comment lines, and
// optionally splits each line into a key and a value:
//
//	p := file.NewParser(file.WithTrimChars(`"'`))
//	release, err := p.Map("/etc/os-release")
//	// release["ID"] == "ubuntu"
//
// The Parse* variants work on in-memory content and are what the sources
// use in tests.
package file
