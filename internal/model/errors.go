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
package model

import (
	"errors"
)

var (
	// Wrong argument count or an unparseable port list.
	ErrInvalidArguments = errors.New("invalid arguments")

	// Input that cannot be planned, e.g. an empty exclusion set.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Expiry date is not a YYYY-MM-DD calendar date.
	ErrInvalidDateFormat = errors.New("invalid date format, use YYYY-MM-DD")

	ErrPacketFilterCommandFailed = errors.New("packet filter command failed")
	ErrSandboxCommandFailed      = errors.New("sandbox command failed")
)
