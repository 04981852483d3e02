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
	"testing"

	"github.com/stretchr/testify/assert"
)

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerRejectsEmptyCommand(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), nil)
	assert.Equal(t, ErrEmptyCommand, err)

	_, err = r.Run(context.Background(), []string{""})
	assert.Equal(t, ErrEmptyCommand, err)
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)
	r := NewExecRunner()

	output, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"})
	assert.Nil(t, err)
	assert.Contains(t, output, "out")
	assert.Contains(t, output, "err")
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	requireShell(t)
	r := NewExecRunner()

	output, err := r.Run(context.Background(), []string{"sh", "-c", "echo nope >&2; exit 3"})
	assert.NotNil(t, err)
	assert.Equal(t, "nope\n", output)

	exitErr := &exec.ExitError{}
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), []string{"/nonexistent/udpru-test-binary"})
	assert.NotNil(t, err)
}

func TestDescribe(t *testing.T) {
	err := errors.New("exit status 1")
	assert.Equal(t, "exit status 1", Describe("", err))
	assert.Equal(t, "exit status 1", Describe(" \n", err))
	assert.Equal(t, "exit status 1: userdel: user 'bob' does not exist", Describe("userdel: user 'bob' does not exist\n", err))
}
