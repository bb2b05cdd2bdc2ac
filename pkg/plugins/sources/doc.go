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

// Package sources provides the built-in source plugins.
//
// Importing the package registers every source with registry.Sources():
//
//	json        local or remote JSON document (file://, http://, https://)
//	cpu         CPU usage sampled from /proc/stat
//	os_release  key-value pairs from /etc/os-release
//	systemd     unit properties read over D-Bus
//	command     output of a shell command
//	timestamp   the collection time in several formats
//	env         environment variables selected by glob patterns
package sources
