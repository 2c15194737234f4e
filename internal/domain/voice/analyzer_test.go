package voice_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/okian/hush/internal/domain/voice"
	. "github.com/smartystreets/goconvey/convey"
)

const rate = 16000

func tone(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

// writeWAV encodes samples as 16-bit mono PCM and returns the file path.
func writeWAV(t *testing.T, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * 32767)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// rawDecoder treats the sample as an index into prepared waveforms.
type rawDecoder struct {
	waves map[string]voice.Waveform
}

func (d rawDecoder) Decode(sample []byte) (voice.Waveform, error) {
	wf, ok := d.waves[string(sample)]
	if !ok {
		return voice.Waveform{}, voice.ErrDecode
	}
	return wf, nil
}

func TestAnalyze(t *testing.T) {
	Convey("Given an analyzer with prepared waveforms", t, func() {
		ctx := context.Background()
		var alternating []float64
		for i := 0; i < 8; i++ {
			freq := 100.0
			if i%2 == 1 {
				freq = 400
			}
			alternating = append(alternating, tone(freq, 4096)...)
		}
		dec := rawDecoder{waves: map[string]voice.Waveform{
			"steady":  {Samples: tone(200, rate), SampleRate: rate},
			"varied":  {Samples: alternating, SampleRate: rate},
			"silent":  {Samples: make([]float64, rate), SampleRate: rate},
			"short":   {Samples: tone(200, 2048), SampleRate: rate},
			"ultra":   {Samples: tone(5000, rate), SampleRate: rate},
			"no-rate": {Samples: tone(200, rate)},
		}}
		a := voice.NewAnalyzer(voice.WithDecoder(dec))

		Convey("When nothing has been recorded", func() {
			res, err := a.Analyze(ctx)

			Convey("Then the score is zero", func() {
				So(err, ShouldBeNil)
				So(a.HasSample(), ShouldBeFalse)
				So(res.NoSample, ShouldBeTrue)
				So(res.Score, ShouldEqual, 0)
			})
		})

		Convey("When the sample is a steady tone", func() {
			So(a.Load([]byte("steady")), ShouldBeNil)
			res, err := a.Analyze(ctx)

			Convey("Then the voice is scored as monotone", func() {
				So(err, ShouldBeNil)
				So(res.Insufficient, ShouldBeFalse)
				So(res.Pitches, ShouldBeGreaterThanOrEqualTo, 6)
				So(res.MeanPitchHz, ShouldAlmostEqual, 200, 10)
				So(res.Score, ShouldBeGreaterThan, 0.85)
				So(res.Score, ShouldBeLessThanOrEqualTo, 1)
			})

			Convey("Then analyzing again gives the same result", func() {
				again, err := a.Analyze(ctx)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When the pitch jumps between 100Hz and 400Hz", func() {
			So(a.Load([]byte("varied")), ShouldBeNil)
			res, err := a.Analyze(ctx)

			Convey("Then the variance saturates and the score is zero", func() {
				So(err, ShouldBeNil)
				So(res.StdDevHz, ShouldBeGreaterThan, 50)
				So(res.Score, ShouldEqual, 0)
			})
		})

		Convey("When the sample is silent", func() {
			So(a.Load([]byte("silent")), ShouldBeNil)
			res, err := a.Analyze(ctx)

			Convey("Then every window is skipped and the score is zero", func() {
				So(err, ShouldBeNil)
				So(res.SilentWindows, ShouldEqual, res.Windows)
				So(res.Insufficient, ShouldBeTrue)
				So(res.Score, ShouldEqual, 0)
			})
		})

		Convey("When the sample has fewer than six windows", func() {
			So(a.Load([]byte("short")), ShouldBeNil)
			res, _ := a.Analyze(ctx)

			Convey("Then the score falls back to zero", func() {
				So(res.Windows, ShouldEqual, 2)
				So(res.Insufficient, ShouldBeTrue)
				So(res.Score, ShouldEqual, 0)
			})
		})

		Convey("When every pitch estimate is outside the voice range", func() {
			So(a.Load([]byte("ultra")), ShouldBeNil)
			res, _ := a.Analyze(ctx)

			Convey("Then no pitch is kept", func() {
				So(res.Pitches, ShouldEqual, 0)
				So(res.Score, ShouldEqual, 0)
			})
		})

		Convey("When the decoded waveform has no sample rate", func() {
			So(a.Load([]byte("no-rate")), ShouldBeNil)
			res, err := a.Analyze(ctx)

			Convey("Then it is treated as insufficient signal", func() {
				So(err, ShouldBeNil)
				So(res.Insufficient, ShouldBeTrue)
			})
		})

		Convey("When the sample cannot be decoded", func() {
			So(a.Load([]byte("garbage")), ShouldBeNil)
			_, err := a.Analyze(ctx)

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, voice.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When an empty sample is loaded", func() {
			Convey("Then it is rejected", func() {
				So(errors.Is(a.Load(nil), voice.ErrEmptySample), ShouldBeTrue)
			})
		})

		Convey("When the sample is cleared", func() {
			So(a.Load([]byte("steady")), ShouldBeNil)
			a.Clear()

			Convey("Then it is gone", func() {
				So(a.HasSample(), ShouldBeFalse)
			})
		})
	})
}

func TestWAVDecoder(t *testing.T) {
	Convey("Given a 16-bit mono WAV file", t, func() {
		path := writeWAV(t, tone(200, rate))
		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)

		Convey("When it is decoded", func() {
			wf, err := voice.WAVDecoder{}.Decode(data)

			Convey("Then samples are normalized to [-1,1] at the file rate", func() {
				So(err, ShouldBeNil)
				So(wf.SampleRate, ShouldEqual, rate)
				So(len(wf.Samples), ShouldEqual, rate)
				peak := 0.0
				for _, v := range wf.Samples {
					peak = math.Max(peak, math.Abs(v))
				}
				So(peak, ShouldAlmostEqual, 0.5, 0.01)
			})
		})

		Convey("When the bytes are not a WAV file", func() {
			_, err := voice.WAVDecoder{}.Decode([]byte("definitely not RIFF data"))

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, voice.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When the sample is empty", func() {
			_, err := voice.WAVDecoder{}.Decode(nil)

			Convey("Then ErrEmptySample is returned", func() {
				So(errors.Is(err, voice.ErrEmptySample), ShouldBeTrue)
			})
		})
	})
}

// gatedDevice signals when a stream is opened and never delivers data.
type gatedDevice struct {
	opened chan struct{}
}

func (d gatedDevice) Open(context.Context) (voice.Stream, error) {
	d.opened <- struct{}{}
	return &idleStream{closed: make(chan struct{})}, nil
}

type idleStream struct{ closed chan struct{} }

func (s *idleStream) Next() ([]byte, error) {
	<-s.closed
	return nil, io.EOF
}

func (s *idleStream) Close() error {
	close(s.closed)
	return nil
}

func TestRecord(t *testing.T) {
	Convey("Given a file device replaying a steady tone", t, func() {
		ctx := context.Background()
		path := writeWAV(t, tone(200, rate))
		a := voice.NewAnalyzer(voice.WithDevice(voice.NewFileDevice(path, 1000)))

		Convey("When a short sample is recorded", func() {
			err := a.Record(ctx, 20*time.Millisecond)

			Convey("Then the reassembled sample decodes and scores as monotone", func() {
				So(err, ShouldBeNil)
				So(a.HasSample(), ShouldBeTrue)
				So(a.Recording(), ShouldBeFalse)
				res, err := a.Analyze(ctx)
				So(err, ShouldBeNil)
				So(res.Score, ShouldBeGreaterThan, 0.85)
			})
		})

		Convey("When the duration is out of range", func() {
			Convey("Then the recording is refused", func() {
				So(errors.Is(a.Record(ctx, 0), voice.ErrInvalidDuration), ShouldBeTrue)
				So(errors.Is(a.Record(ctx, time.Hour), voice.ErrInvalidDuration), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled mid-recording", func() {
			So(a.Load([]byte("previous")), ShouldBeNil)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := a.Record(cctx, time.Second)

			Convey("Then the previous sample is kept", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				_, derr := a.Analyze(ctx)
				So(errors.Is(derr, voice.ErrDecode), ShouldBeTrue)
			})
		})
	})

	Convey("Given no usable device", t, func() {
		ctx := context.Background()

		Convey("When recording with the default device", func() {
			err := voice.NewAnalyzer().Record(ctx, 10*time.Millisecond)

			Convey("Then ErrDeviceUnavailable is returned", func() {
				So(errors.Is(err, voice.ErrDeviceUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the device file does not exist", func() {
			a := voice.NewAnalyzer(voice.WithDevice(voice.NewFileDevice("/no/such/file.wav", 0)))
			err := a.Record(ctx, 10*time.Millisecond)

			Convey("Then ErrDeviceUnavailable is returned", func() {
				So(errors.Is(err, voice.ErrDeviceUnavailable), ShouldBeTrue)
				So(a.HasSample(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a recording already in flight", t, func() {
		ctx := context.Background()
		dev := gatedDevice{opened: make(chan struct{}, 1)}
		a := voice.NewAnalyzer(voice.WithDevice(dev))

		first := make(chan error, 1)
		go func() { first <- a.Record(ctx, 100*time.Millisecond) }()
		<-dev.opened

		Convey("When a second recording starts", func() {
			err := a.Record(ctx, 10*time.Millisecond)

			Convey("Then it is rejected and the first completes", func() {
				So(errors.Is(err, voice.ErrRecordingInFlight), ShouldBeTrue)
				So(errors.Is(<-first, voice.ErrEmptySample), ShouldBeTrue)
			})
		})
	})
}
