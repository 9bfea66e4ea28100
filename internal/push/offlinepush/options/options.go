// Copyright © 2024 Chatwire. All rights reserved.
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

// Package options holds the types shared by the push providers and their
// callers.
package options

// Opts carries the notification payload attached to a push.
type Opts struct {
	// Data is delivered verbatim to the client app alongside the
	// notification.
	Data map[string]string
}

// Result is the outcome of one push batch. InvalidTokens are tokens the
// provider reported as dead; the caller deletes them immediately.
type Result struct {
	Success       int
	Failed        int
	InvalidTokens []string
}
