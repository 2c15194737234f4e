package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorClass(t *testing.T) {
	Convey("Given response statuses", t, func() {
		So(errorClass(http.StatusOK), ShouldEqual, "")
		So(errorClass(http.StatusAccepted), ShouldEqual, "")
		So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
		So(errorClass(http.StatusConflict), ShouldEqual, "conflict")
		So(errorClass(http.StatusUnprocessableEntity), ShouldEqual, "unprocessable_entity")
		So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "service_unavailable")
		So(errorClass(499), ShouldEqual, "client_error")
		So(errorClass(599), ShouldEqual, "server_error")
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.WriteHeader(http.StatusOK)
		}, "test")

		Convey("Then the first status written reaches the client", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusConflict)
		})
	})
}
