package api

import (
	"fmt"
	"net/http"
	"testing"

	service "github.com/okian/hush/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given service errors wrapped by an operation", t, func() {
		Convey("Then an in-flight retry is a conflict", func() {
			status, code := classify(Wrap("api.submit_journal", fmt.Errorf("e-1: %w", service.ErrSubmitInProgress)))
			So(status, ShouldEqual, http.StatusConflict)
			So(code, ShouldEqual, "submit_in_progress")
		})

		Convey("Then a missing session is a conflict", func() {
			status, code := classify(NewKind("api.current_session", service.ErrNoSession))
			So(status, ShouldEqual, http.StatusConflict)
			So(code, ShouldEqual, "no_session")
		})

		Convey("Then a mixed key batch is a bad request", func() {
			status, _ := classify(WrapKind("api.deliver_keys", ErrBadRequest, ErrMixedClocks))
			So(status, ShouldEqual, http.StatusBadRequest)
		})
	})
}
