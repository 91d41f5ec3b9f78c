// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/staranto/saasctl/internal/output"
)

// ErrUnknownMethod is returned for a batch line whose verb is not an HTTP
// method or batch directive.
var ErrUnknownMethod = errors.New("unknown method")

// ErrUnknownResource is returned when a mutation names a resource that is
// neither known nor an absolute API path.
var ErrUnknownResource = errors.New("unknown resource")

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	s, _ := value.(string)
	if !slices.Contains(output.Formats, s) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

// methods are the verbs accepted on a batch line.
var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func MethodValidator(value any) error {
	s, _ := value.(string)
	if !slices.Contains(methods, strings.ToUpper(s)) {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return nil
}
