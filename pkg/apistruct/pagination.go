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

package apistruct

// Pagination is the page/size pair accepted by every list endpoint. It
// satisfies the storage layer's pagination interface.
type Pagination struct {
	PageNumber int32 `json:"pageNumber" form:"pageNumber"`
	ShowNumber int32 `json:"showNumber" form:"showNumber"`
}

func (p *Pagination) GetPageNumber() int32 { return p.PageNumber }

func (p *Pagination) GetShowNumber() int32 { return p.ShowNumber }

// Normalize defaults the page to 1 and clamps the page size into
// [minShow, maxShow]. Out-of-range values are corrected, not rejected.
func (p *Pagination) Normalize(minShow, maxShow int32) {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.ShowNumber < minShow {
		p.ShowNumber = minShow
	}
	if p.ShowNumber > maxShow {
		p.ShowNumber = maxShow
	}
}
