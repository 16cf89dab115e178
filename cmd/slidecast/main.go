/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"slidecast/internal/crash"
	applog "slidecast/internal/log"
)

// session tells the crash handler which workspace and partial script to save.
var session crash.Session

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()
	applog.Init(applog.FromEnv())
	code := execute(os.Args[1:])
	_ = applog.Close()
	os.Exit(code)
}

func execute(args []string) int {
	defer crash.Recover(&session)
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error to the process status: 2 for usage, 1 otherwise.
func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	// cobra reports unknown subcommands before any validator runs.
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

// usageError marks bad invocations: wrong argument counts, unknown flags, empty input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
