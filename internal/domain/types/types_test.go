package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/hush/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmissionStatus(t *testing.T) {
	Convey("Given the submission statuses", t, func() {
		Convey("Then they encode as plain strings", func() {
			raw, err := json.Marshal(map[string]types.SubmissionStatus{"submission": types.SubmissionDropped})
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"submission":"dropped"}`)
			So(types.SubmissionQueued, ShouldNotEqual, types.SubmissionDisabled)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given zero Stats", t, func() {
		raw, err := json.Marshal(types.Stats{})

		Convey("Then the session handle is omitted", func() {
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "session_handle")
			So(string(raw), ShouldContainSubstring, `"queue_depth":0`)
		})
	})
}
