// Copyright 2025 Poiesic Systems
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

package pipeline

import (
	"context"

	"github.com/poiesic/rowembed/core"
)

// OutputSink receives output records in emission order.
type OutputSink interface {
	WriteRecord(ctx context.Context, record core.OutputRecord) error
}

// LinkingSink receives one linking record per emitted source row.
type LinkingSink interface {
	WriteLink(ctx context.Context, link core.LinkingRecord) error
}

// Progress is notified once per processed source row.
// embed.ProgressTracker satisfies it.
type Progress interface {
	Start()
	Increment(delta int)
	Finish()
}
