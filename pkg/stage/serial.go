package stage

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/log"
)

// Serial protocol constants. The stage controller speaks a line-oriented
// ASCII protocol: every command is answered with "OK [payload]" or
// "ERR <message>".
const (
	serialBaud        = 115200
	serialReadTimeout = 250 * time.Millisecond
	statusPollPeriod  = 50 * time.Millisecond
)

// SerialStage drives a positioner over a serial line.
type SerialStage struct {
	mu         sync.Mutex
	identifier string
	address    string
	port       *serial.Port
	reader     *bufio.Reader
	settings   MotionSettings
	logger     *log.Logger
}

// NewSerialStage creates a serial stage driver for a device path such as
// /dev/ttyUSB0. The connection is opened by Connect.
func NewSerialStage(identifier, address string) *SerialStage {
	return &SerialStage{
		identifier: identifier,
		address:    address,
		logger:     log.GetLogger("stage." + identifier),
	}
}

func init() {
	Register("serial", func(identifier, address string) (Stage, error) {
		return NewSerialStage(identifier, address), nil
	})
}

// Identifier returns the hardware serial of the stage.
func (s *SerialStage) Identifier() string { return s.identifier }

// Address returns the serial device path.
func (s *SerialStage) Address() string { return s.address }

// Connect opens the serial port and verifies the controller responds.
func (s *SerialStage) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        s.address,
		Baud:        serialBaud,
		ReadTimeout: serialReadTimeout,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.address, err)
	}
	s.port = port
	s.reader = bufio.NewReader(port)

	// Identify the controller; a silent line means wrong device.
	if _, err := s.commandLocked("ID?"); err != nil {
		port.Close()
		s.port = nil
		s.reader = nil
		return fmt.Errorf("identify %s: %w", s.address, err)
	}
	s.logger.Info("connected to stage at %s", s.address)
	return nil
}

// Disconnect closes the serial port.
func (s *SerialStage) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.reader = nil
	return err
}

// Connected reports whether the serial port is open.
func (s *SerialStage) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// MoveRelative moves by a stage-frame displacement and waits for completion.
func (s *SerialStage) MoveRelative(ctx context.Context, delta coordinate.StageCoordinate) error {
	if _, err := s.command(fmt.Sprintf("MOVR %.3f %.3f %.3f", delta.X, delta.Y, delta.Z)); err != nil {
		return err
	}
	return s.waitMotionDone(ctx)
}

// MoveAbsolute moves to a stage-frame position and waits for completion.
func (s *SerialStage) MoveAbsolute(ctx context.Context, pos coordinate.StageCoordinate) error {
	if _, err := s.command(fmt.Sprintf("MOVA %.3f %.3f %.3f", pos.X, pos.Y, pos.Z)); err != nil {
		return err
	}
	return s.waitMotionDone(ctx)
}

// CurrentPosition queries the raw stage-frame position.
func (s *SerialStage) CurrentPosition() (coordinate.StageCoordinate, error) {
	payload, err := s.command("POS?")
	if err != nil {
		return coordinate.StageCoordinate{}, err
	}
	var x, y, z float64
	if _, err := fmt.Sscanf(payload, "%f %f %f", &x, &y, &z); err != nil {
		return coordinate.StageCoordinate{}, fmt.Errorf("bad position response %q: %w", payload, err)
	}
	return coordinate.StageCoordinate{X: x, Y: y, Z: z}, nil
}

// SetMotionSettings applies speed and acceleration values.
func (s *SerialStage) SetMotionSettings(m MotionSettings) error {
	if _, err := s.command(fmt.Sprintf("VEL %.3f %.3f", m.SpeedXY, m.SpeedZ)); err != nil {
		return err
	}
	if _, err := s.command(fmt.Sprintf("ACC %.3f", m.Acceleration)); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = m
	s.mu.Unlock()
	return nil
}

// MotionSettings returns the last applied settings.
func (s *SerialStage) MotionSettings() (MotionSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return MotionSettings{}, ErrNotConnected
	}
	return s.settings, nil
}

// Status queries the motion status.
func (s *SerialStage) Status() (Status, error) {
	payload, err := s.command("STA?")
	if err != nil {
		return StatusError, err
	}
	switch strings.ToUpper(strings.TrimSpace(payload)) {
	case "STOP":
		return StatusStopped, nil
	case "MOVE", "MOVING":
		return StatusMoving, nil
	default:
		return StatusError, fmt.Errorf("unknown status %q", payload)
	}
}

// Stop issues an explicit stop to the controller.
func (s *SerialStage) Stop() error {
	_, err := s.command("STOP")
	return err
}

// waitMotionDone polls the controller until motion completes or the context
// is done, in which case the stage is stopped before returning.
func (s *SerialStage) waitMotionDone(ctx context.Context) error {
	ticker := time.NewTicker(statusPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				s.logger.Error("stop after cancellation failed: %v", err)
			}
			return ctx.Err()
		case <-ticker.C:
			status, err := s.Status()
			if err != nil {
				return err
			}
			if status == StatusStopped {
				return nil
			}
		}
	}
}

// command sends one command line and reads the response payload.
func (s *SerialStage) command(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandLocked(cmd)
}

func (s *SerialStage) commandLocked(cmd string) (string, error) {
	if s.port == nil {
		return "", ErrNotConnected
	}
	if _, err := s.port.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response to %q: %w", cmd, err)
	}
	line = strings.TrimSpace(line)
	switch {
	case line == "OK":
		return "", nil
	case strings.HasPrefix(line, "OK "):
		return line[3:], nil
	case strings.HasPrefix(line, "ERR"):
		return "", fmt.Errorf("controller error: %s", strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	default:
		return "", fmt.Errorf("unexpected response %q to %q", line, cmd)
	}
}
