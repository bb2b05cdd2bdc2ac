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

package sources

import (
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/registry"
)

func init() {
	reg := registry.Sources()
	reg.MustRegister("json", func(t, id string) plugin.Component { return NewJSON(t, id) })
	reg.MustRegister("cpu", func(t, id string) plugin.Component { return NewCPU(t, id) })
	reg.MustRegister("os_release", func(t, id string) plugin.Component { return NewOSRelease(t, id) })
	reg.MustRegister("systemd", func(t, id string) plugin.Component { return NewSystemd(t, id) })
	reg.MustRegister("command", func(t, id string) plugin.Component { return NewCommand(t, id) })
	reg.MustRegister("timestamp", func(t, id string) plugin.Component { return NewTimestamp(t, id) })
	reg.MustRegister("env", func(t, id string) plugin.Component { return NewEnv(t, id) })
	reg.MustRegister("kernel_cmdline", func(t, id string) plugin.Component { return NewKernelCmdline(t, id) })
	reg.MustRegister("kernel_modules", func(t, id string) plugin.Component { return NewKernelModules(t, id) })
	reg.MustRegister("sysctl", func(t, id string) plugin.Component { return NewSysctl(t, id) })
	reg.MustRegister("kubernetes", func(t, id string) plugin.Component { return NewKubernetes(t, id) })
}
