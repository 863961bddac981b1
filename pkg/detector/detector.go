package detector

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"SurveillanceGolang/internal/entity"
	"SurveillanceGolang/pkg/utils"

	"github.com/gorilla/websocket"
)

// IDetector is the boundary to the external object-detection model. The model
// runs as an inference sidecar reachable over WebSocket: one binary JPEG frame
// out, one JSON detection result back.
type IDetector interface {
	DetectObjects(frame []byte) ([]entity.Detection, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type detectionResult struct {
	Objects []entity.Detection `json:"objects"`
}

type wsDetector struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func New() IDetector {
	d := &wsDetector{
		url:          utils.Env("DETECTOR_WS_URL", "ws://localhost:8765/detect"),
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go d.connectInBackground()

	return d
}

// NewWithURL builds a detector against an explicit endpoint without the
// background connect. Used for wiring against local inference fixtures.
func NewWithURL(url string) IDetector {
	return &wsDetector{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (d *wsDetector) connectInBackground() {
	if err := d.Reconnect(); err != nil {
		log.Printf("Initial connection to detector failed: %v. Will retry on demand.", err)
	} else {
		log.Printf("Successfully connected to detector service")
	}
}

func (d *wsDetector) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *wsDetector) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(d.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", d.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(d.writeTimeout))
		if err != nil {
			log.Printf("Error sending pong: %v", err)
		}
		return nil
	})

	d.conn = conn

	go d.keepAlive()

	return nil
}

func (d *wsDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *wsDetector) keepAlive() {
	ticker := time.NewTicker(d.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		d.mu.Lock()
		conn := d.conn
		if conn == nil {
			d.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(d.writeTimeout),
		)
		if err != nil {
			log.Printf("Ping failed for detector, marking connection as dead: %v", err)
			d.conn = nil
			conn.Close()
			d.mu.Unlock()
			return
		}

		d.mu.Unlock()
	}
}

func (d *wsDetector) getConnection() (*websocket.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, fmt.Errorf("not connected to detector service")
	}

	return d.conn, nil
}

func (d *wsDetector) DetectObjects(frame []byte) ([]entity.Detection, error) {
	conn, err := d.getConnection()
	if err != nil {
		if err := d.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to detector service: %w", err)
		}
		conn, err = d.getConnection()
		if err != nil {
			return nil, err
		}
	}

	d.mu.Lock()

	conn.SetWriteDeadline(time.Now().Add(d.writeTimeout))

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		d.conn = nil
		conn.Close()
		d.mu.Unlock()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))

	d.mu.Unlock()

	_, message, err := conn.ReadMessage()
	if err != nil {
		d.mu.Lock()
		d.conn = nil
		conn.Close()
		d.mu.Unlock()
		return nil, fmt.Errorf("error reading detection result: %w", err)
	}

	var result detectionResult
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("invalid detection result: %w", err)
	}

	return result.Objects, nil
}
