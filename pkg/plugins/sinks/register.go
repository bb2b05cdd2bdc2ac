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

package sinks

import (
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

func init() {
	reg := registry.Sinks()
	reg.MustRegister("print", func(t, id string) plugin.Component { return NewPrint(t, id) })
	reg.MustRegister("archive", func(t, id string) plugin.Component { return NewArchive(t, id) })
	reg.MustRegister("http", func(t, id string) plugin.Component { return NewHTTP(t, id) })
	reg.MustRegister("sqlite", func(t, id string) plugin.Component { return NewSQLite(t, id) })
	reg.MustRegister("nats", func(t, id string) plugin.Component { return NewNATS(t, id) })
	reg.MustRegister("configmap", func(t, id string) plugin.Component { return NewConfigMap(t, id) })
	reg.MustRegister("oci", func(t, id string) plugin.Component { return NewOCI(t, id) })
}
