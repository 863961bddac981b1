package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotOpened     = errors.New("camera is not opened")
	ErrAlreadyOpened = errors.New("camera is already opened")
	ErrNoFrame       = errors.New("no frame available")
)

// Frame is one JPEG image pulled from the camera feed.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

type IFrameSource interface {
	Open() error
	ReadFrame(timeout time.Duration) (*Frame, error)
	Close() error
}

// mjpegCamera reads an MJPEG multipart stream from an IP camera URL. A reader
// goroutine decodes parts into frames and keeps only the most recent one, so
// ReadFrame always observes a bounded wait and a fresh frame.
type mjpegCamera struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	frames chan *Frame
	opened bool
}

func New(url string) IFrameSource {
	return &mjpegCamera{
		url: url,
		client: &http.Client{
			Timeout: 0, // streaming body, bounded by the request context instead
		},
	}
}

func (c *mjpegCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return ErrAlreadyOpened
	}

	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("invalid camera url: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to connect to camera: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("camera did not return an MJPEG stream (content-type %q)", resp.Header.Get("Content-Type"))
	}

	c.cancel = cancel
	c.frames = make(chan *Frame, 1)
	c.opened = true

	go c.readLoop(resp.Body, params["boundary"], c.frames)

	return nil
}

func (c *mjpegCamera) readLoop(body io.ReadCloser, boundary string, frames chan *Frame) {
	defer body.Close()

	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			// Stream ended or the request context was cancelled by Close.
			return
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// Corrupt part, skip and wait for the next frame.
			continue
		}

		frame := &Frame{Data: data, Width: cfg.Width, Height: cfg.Height}

		// Keep only the latest frame; stale frames are dropped.
		select {
		case frames <- frame:
		default:
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- frame:
			default:
			}
		}
	}
}

func (c *mjpegCamera) ReadFrame(timeout time.Duration) (*Frame, error) {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return nil, ErrNotOpened
	}
	frames := c.frames
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-frames:
		if !ok {
			return nil, ErrNotOpened
		}
		return frame, nil
	case <-timer.C:
		return nil, ErrNoFrame
	}
}

func (c *mjpegCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return nil
	}

	c.cancel()
	c.cancel = nil
	c.opened = false

	return nil
}
