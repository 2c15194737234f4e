package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hush/internal/adapters/http/api"
	service "github.com/okian/hush/internal/app"
	"github.com/okian/hush/internal/domain/biomarker"
	"github.com/okian/hush/internal/domain/voice"
	. "github.com/smartystreets/goconvey/convey"
)

func newAgent(debug bool) (*http.ServeMux, *service.Service) {
	svc := service.New(service.WithWorkerCount(1))
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, api.WithDebug(debug), api.WithMaxJournalLimit(50), api.WithMaxSampleBytes(64)).
		Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

// keysBody builds n keystrokes 100ms apart ending in backspaces.
func keysBody(n, backspaces int) string {
	parts := make([]string, n)
	for i := range parts {
		key := "a"
		if i >= n-backspaces {
			key = biomarker.BackspaceKey
		}
		parts[i] = fmt.Sprintf(`{"key":%q,"ts":%d}`, key, 1_700_000_000_000+int64(i)*100)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an agent API", t, func() {
		mux, svc := newAgent(false)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("The root reports liveness", func() {
			w := do(mux, http.MethodGet, "/", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "hush agent is running.")
		})

		Convey("The health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "hush_")
		})

		Convey("The stats endpoint reports agent state", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode(w)
			So(stats["journal_entries"], ShouldEqual, 0.0)
			So(stats["session_active"], ShouldEqual, false)
		})

		Convey("Debug routes are hidden by default", func() {
			w := do(mux, http.MethodGet, "/debug/typing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Wrong methods are rejected", func() {
			w := do(mux, http.MethodGet, "/score/text", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_TypingSession(t *testing.T) {
	Convey("Given a registered surface", t, func() {
		mux, svc := newAgent(true)
		defer func() { _ = svc.Stop(context.Background()) }()
		So(do(mux, http.MethodPost, "/surfaces/journal", "").Code, ShouldEqual, http.StatusCreated)

		Convey("When a session is started on it", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"handle":"journal"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(decode(w)["listening"], ShouldEqual, true)

			Convey("Then delivered keys are visible in the debug snapshot", func() {
				w := do(mux, http.MethodPost, "/surfaces/journal/keys", keysBody(5, 2))
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["accepted"], ShouldEqual, 5.0)

				snap := decode(do(mux, http.MethodGet, "/debug/typing", ""))
				So(snap["keystrokes"], ShouldEqual, 5.0)
				So(snap["backspaces"], ShouldEqual, 2.0)
			})

			Convey("Then the current session is reported", func() {
				w := do(mux, http.MethodGet, "/sessions/current", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["handle"], ShouldEqual, "journal")
			})

			Convey("Then it can be ended once", func() {
				So(do(mux, http.MethodDelete, "/sessions/current", "").Code, ShouldEqual, http.StatusNoContent)
				w := do(mux, http.MethodDelete, "/sessions/current", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "no_session")

				w = do(mux, http.MethodGet, "/sessions/current", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "no_session")
			})
		})

		Convey("When a session targets an unknown surface", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"handle":"missing"}`)

			Convey("Then 404 is returned and the session stays idle", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := decode(w)
				So(body["listening"], ShouldEqual, false)
				So(body["error"], ShouldContainSubstring, "surface not found")
			})
		})

		Convey("When a session request has no handle", func() {
			w := do(mux, http.MethodPost, "/sessions", `{}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When keys are sent to an unknown surface", func() {
			w := do(mux, http.MethodPost, "/surfaces/other/keys", keysBody(1, 0))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "surface_not_found")
		})

		Convey("When a key event is malformed", func() {
			So(do(mux, http.MethodPost, "/surfaces/journal/keys", `[{"ts":1}]`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/surfaces/journal/keys", `{nope`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a key batch mixes client and server timestamps", func() {
			w := do(mux, http.MethodPost, "/surfaces/journal/keys", `[{"key":"a","ts":1700000000000},{"key":"b"}]`)

			Convey("Then it is rejected as a whole", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["message"], ShouldContainSubstring, "mixes stamped and unstamped")
			})
		})

		Convey("When a key batch carries no timestamps", func() {
			w := do(mux, http.MethodPost, "/surfaces/journal/keys", `[{"key":"a"},{"key":"b"}]`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
		})

		Convey("When the surface is removed", func() {
			So(do(mux, http.MethodDelete, "/surfaces/journal", "").Code, ShouldEqual, http.StatusNoContent)
			So(do(mux, http.MethodPost, "/surfaces/journal/keys", keysBody(1, 0)).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Journal(t *testing.T) {
	Convey("Given a session with recorded keystrokes", t, func() {
		mux, svc := newAgent(false)
		defer func() { _ = svc.Stop(context.Background()) }()
		do(mux, http.MethodPost, "/surfaces/journal", "")
		do(mux, http.MethodPost, "/sessions", `{"handle":"journal"}`)
		do(mux, http.MethodPost, "/surfaces/journal/keys", keysBody(10, 3))

		Convey("When an entry is submitted", func() {
			w := do(mux, http.MethodPost, "/journal", `{"id":"e-1","prompt":"Today?","content":"I feel happy and grateful"}`)

			Convey("Then it is created with its attribution", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decode(w)
				So(body["submission"], ShouldEqual, "disabled")
				entry := body["entry"].(map[string]any)
				So(entry["id"], ShouldEqual, "e-1")
				attr := entry["attribution"].(map[string]any)
				So(attr["text"], ShouldAlmostEqual, 0.4, 1e-9)
				So(attr["typing"], ShouldAlmostEqual, 0.3, 1e-9)
				So(attr["voice"], ShouldEqual, 0.0)
			})

			Convey("Then resubmitting the same id is a duplicate", func() {
				w := do(mux, http.MethodPost, "/journal", `{"id":"e-1","content":"again"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
			})

			Convey("Then it is listed", func() {
				w := do(mux, http.MethodGet, "/journal?limit=5", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0]["content"], ShouldEqual, "I feel happy and grateful")
			})
		})

		Convey("When the content is blank", func() {
			w := do(mux, http.MethodPost, "/journal", `{"content":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing with bad limits", func() {
			So(do(mux, http.MethodGet, "/journal?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/journal?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When listing an empty journal", func() {
			w := do(mux, http.MethodGet, "/journal", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})
	})
}

func TestServer_Scoring(t *testing.T) {
	Convey("Given an agent without a recording device", t, func() {
		mux, svc := newAgent(false)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Text is scored on demand", func() {
			w := do(mux, http.MethodPost, "/score/text", `{"text":"I feel happy and grateful"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["score"], ShouldAlmostEqual, 0.4, 1e-9)
		})

		Convey("Recording reports the missing device", func() {
			w := do(mux, http.MethodPost, "/voice/record", `{"duration_ms":100}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "device_unavailable")
		})

		Convey("A negative duration is rejected", func() {
			So(do(mux, http.MethodPost, "/voice/record", `{"duration_ms":-1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Voice scores 0 with no sample", func() {
			w := do(mux, http.MethodGet, "/voice/score", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["score"], ShouldEqual, 0.0)
			So(body["no_sample"], ShouldEqual, true)
		})

		Convey("An empty upload is rejected", func() {
			So(do(mux, http.MethodPut, "/voice/sample", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An oversized upload is rejected", func() {
			w := do(mux, http.MethodPut, "/voice/sample", strings.Repeat("x", 65))
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("An undecodable upload fails on scoring", func() {
			So(do(mux, http.MethodPut, "/voice/sample", "not a wav").Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodGet, "/voice/score", "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(w)["code"], ShouldEqual, "decode_error")
		})

		Convey("Diagnostics report every modality", func() {
			w := do(mux, http.MethodPost, "/diagnostics", `{"text":"sad","record_ms":100}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			attr := body["feature_attributions"].(map[string]any)
			So(attr["text"], ShouldAlmostEqual, 0.55, 1e-9)
			So(attr["typing"], ShouldEqual, 0.0)
			So(body["voice_error"], ShouldContainSubstring, "device")
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		err := api.WrapKind("api.op", api.ErrBadRequest, errors.New("boom"))

		Convey("Then both the kind and the cause are matchable", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then domain errors keep their identity", func() {
			So(errors.Is(api.Wrap("api.op", voice.ErrDecode), voice.ErrDecode), ShouldBeTrue)
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.NewKind("api.op", api.ErrTooLarge).Error(), ShouldEqual, "api.op: payload too large")
		})
	})
}
