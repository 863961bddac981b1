package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

// mjpegServer streams the given frames once, then holds the connection open
// until the client goes away.
func mjpegServer(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := multipart.NewWriter(w)
		w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", writer.Boundary()))
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		for _, frame := range frames {
			part, err := writer.CreatePart(textproto.MIMEHeader{
				"Content-Type": []string{"image/jpeg"},
			})
			if err != nil {
				return
			}
			part.Write(frame)
			if flusher != nil {
				flusher.Flush()
			}
		}

		<-r.Context().Done()
	}))
}

func TestOpenAndReadFrame(t *testing.T) {
	frame := encodeTestJPEG(t, 32, 24)
	server := mjpegServer(t, [][]byte{frame})
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cam.Close()

	got, err := cam.ReadFrame(2 * time.Second)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got.Width != 32 || got.Height != 24 {
		t.Errorf("frame dimensions = %dx%d, want 32x24", got.Width, got.Height)
	}
	if !bytes.Equal(got.Data, frame) {
		t.Error("frame data does not match the streamed JPEG")
	}
}

func TestOpenRejectsNonMJPEGStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a camera</html>"))
	}))
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err == nil {
		cam.Close()
		t.Fatal("expected Open to reject a non-multipart response")
	}
}

func TestOpenRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err == nil {
		cam.Close()
		t.Fatal("expected Open to fail on a 404 response")
	}
}

func TestReadFrameTimesOutOnStalledStream(t *testing.T) {
	server := mjpegServer(t, nil)
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cam.Close()

	start := time.Now()
	_, err := cam.ReadFrame(100 * time.Millisecond)
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ReadFrame took %v, the wait must stay bounded", elapsed)
	}
}

func TestReadFrameBeforeOpen(t *testing.T) {
	cam := New("http://localhost:0")
	if _, err := cam.ReadFrame(10 * time.Millisecond); !errors.Is(err, ErrNotOpened) {
		t.Fatalf("expected ErrNotOpened, got %v", err)
	}
}

func TestOpenTwice(t *testing.T) {
	frame := encodeTestJPEG(t, 8, 8)
	server := mjpegServer(t, [][]byte{frame})
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cam.Close()

	if err := cam.Open(); !errors.Is(err, ErrAlreadyOpened) {
		t.Fatalf("expected ErrAlreadyOpened, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	frame := encodeTestJPEG(t, 8, 8)
	server := mjpegServer(t, [][]byte{frame})
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := cam.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestReopenAfterClose(t *testing.T) {
	frame := encodeTestJPEG(t, 16, 16)
	server := mjpegServer(t, [][]byte{frame})
	defer server.Close()

	cam := New(server.URL)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer cam.Close()

	if _, err := cam.ReadFrame(2 * time.Second); err != nil {
		t.Fatalf("ReadFrame after reopen failed: %v", err)
	}
}
