/* Copyright 2024 CLOUD&HEAT Technologies GmbH
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"k8s.io/klog"
)

var ErrEmptyCommand = errors.New("command must not be empty")

// Runner executes an external command and waits for it to finish. The
// returned output contains stdout and stderr interleaved, for diagnostics.
type Runner interface {
	Run(ctx context.Context, argv []string) (output string, err error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", ErrEmptyCommand
	}

	klog.V(4).Infof("executing: %#v", argv)
	output := &strings.Builder{}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = output
	cmd.Stderr = output
	err := cmd.Run()
	return output.String(), err
}

// Describe renders the diagnostic of a failed command: the trimmed command
// output if there is any, the error otherwise.
func Describe(output string, err error) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return err.Error()
	}
	return err.Error() + ": " + output
}
