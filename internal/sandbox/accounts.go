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
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slices"
	"k8s.io/klog"

	"github.com/cloudandheat/udp-redirector/internal/command"
	"github.com/cloudandheat/udp-redirector/internal/config"
	"github.com/cloudandheat/udp-redirector/internal/model"
)

const ExpiryDateLayout = "2006-01-02"

// same default as adduser's NAME_REGEX
var usernameRegexp = regexp.MustCompile(`^[a-z][-a-z0-9_]{0,31}\$?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegexp.MatchString(fl.Field().String())
	})
	return v
}

type Account struct {
	Username string `validate:"required,username"`
	Password string `validate:"required"`
	// YYYY-MM-DD, the last day the account is usable
	ExpiryDate string `validate:"required,datetime=2006-01-02"`
}

type Step string

const (
	StepCreate   Step = "create"
	StepExpire   Step = "expire"
	StepPassword Step = "password"
	StepDelete   Step = "delete"
)

// CommandFailedError carries the diagnostic output of the failed sandbox
// command.
type CommandFailedError struct {
	Step     Step
	Username string
	Args     []string
	Output   string
	Err      error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("%s: %s step for user %q: %s",
		model.ErrSandboxCommandFailed, e.Step, e.Username, command.Describe(e.Output, e.Err))
}

func (e *CommandFailedError) Unwrap() error {
	return e.Err
}

func (e *CommandFailedError) Is(target error) bool {
	return target == model.ErrSandboxCommandFailed
}

func ValidateExpiryDate(date string) error {
	if err := validate.Var(date, "required,datetime="+ExpiryDateLayout); err != nil {
		return fmt.Errorf("%w: %q", model.ErrInvalidDateFormat, date)
	}
	return nil
}

func ValidateUsername(username string) error {
	if err := validate.Var(username, "required,username"); err != nil {
		return fmt.Errorf("%w: %q is not a valid username", model.ErrInvalidArguments, username)
	}
	return nil
}

func ValidateAccount(account *Account) error {
	if err := ValidateExpiryDate(account.ExpiryDate); err != nil {
		return err
	}
	err := validate.Struct(account)
	if err == nil {
		return nil
	}
	validationErrs := validator.ValidationErrors{}
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// never echo the password value
		return fmt.Errorf("%w: account field %s failed on %q", model.ErrInvalidArguments, validationErrs[0].Field(), validationErrs[0].Tag())
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidArguments, err.Error())
}

// AccountManager manages accounts inside the sandbox container. Each
// operation is a chain of separate commands without rollback: if a later
// step fails, the effects of earlier steps remain.
type AccountManager struct {
	Runner command.Runner
	Cfg    config.Sandbox
}

func (m *AccountManager) sandboxCommand(cmd []string, args ...string) []string {
	argv := slices.Clone(m.Cfg.ExecCommand)
	argv = append(argv, m.Cfg.Container)
	argv = append(argv, cmd...)
	return append(argv, args...)
}

func (m *AccountManager) run(ctx context.Context, step Step, username string, argv []string) error {
	klog.V(2).Infof("%s step for user %q in sandbox %s", step, username, m.Cfg.Container)
	output, err := m.Runner.Run(ctx, argv)
	if err != nil {
		return &CommandFailedError{
			Step:     step,
			Username: username,
			Args:     argv,
			Output:   output,
			Err:      err,
		}
	}
	return nil
}

// CreateAccount creates an unprivileged account, sets its expiry date and
// then its password. Input is validated before any command runs.
func (m *AccountManager) CreateAccount(ctx context.Context, account Account) error {
	if err := ValidateAccount(&account); err != nil {
		return err
	}

	err := m.run(ctx, StepCreate, account.Username,
		m.sandboxCommand(m.Cfg.AddUserCommand, account.Username))
	if err != nil {
		return err
	}

	err = m.run(ctx, StepExpire, account.Username,
		m.sandboxCommand(m.Cfg.ExpireCommand, account.ExpiryDate, account.Username))
	if err != nil {
		return err
	}

	err = m.run(ctx, StepPassword, account.Username,
		m.sandboxCommand(m.Cfg.PasswordCommand, account.Username, account.Password))
	if err != nil {
		return err
	}

	klog.V(1).Infof("created account %q expiring %s", account.Username, account.ExpiryDate)
	return nil
}

func (m *AccountManager) DeleteAccount(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	err := m.run(ctx, StepDelete, username,
		m.sandboxCommand(m.Cfg.DeleteUserCommand, username))
	if err != nil {
		return err
	}

	klog.V(1).Infof("deleted account %q", username)
	return nil
}
