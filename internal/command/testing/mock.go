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
package testing

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// TODO: use mockery

type MockRunner struct {
	mock.Mock
}

func NewMockRunner() *MockRunner {
	return new(MockRunner)
}

func (m *MockRunner) Run(ctx context.Context, argv []string) (string, error) {
	a := m.Called(argv)
	return a.String(0), a.Error(1)
}

// Commands returns the argv of every recorded call, in call order.
func (m *MockRunner) Commands() [][]string {
	result := make([][]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		result = append(result, call.Arguments.Get(0).([]string))
	}
	return result
}
