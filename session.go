package apecore

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"slices"
	"sync"

	"github.com/openztcc/apecore/ape"
	"github.com/openztcc/apecore/frameset"
	"github.com/openztcc/apecore/palette"
	"github.com/pkg/errors"
)

// ErrSessionClosed is returned by any operation on a closed Session.
var ErrSessionClosed = errors.New("apecore: session closed")

// Session holds one loaded container together with its palette. It is not
// safe for concurrent use.
type Session struct {
	path        string
	palettePath string
	profile     ape.Profile

	container *ape.Container
	palette   palette.Palette

	workers int
	noAlpha bool
	fill    color.NRGBA
	logger  *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for warnings. By default nothing is logged.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithWorkers decodes frames on up to n goroutines.
func WithWorkers(n int) Option {
	return func(s *Session) {
		s.workers = n
	}
}

// WithNoAlpha composites every frame onto an opaque canvas-sized magenta
// layer.
func WithNoAlpha() Option {
	return WithFill(frameset.Magenta)
}

// WithFill composites every frame onto an opaque canvas-sized layer of c.
func WithFill(c color.NRGBA) Option {
	return func(s *Session) {
		s.noAlpha = true
		s.fill = c
	}
}

// NewSession loads the container at path. If palettePath is empty the
// palette named in the header is looked for relative to path. Failing to
// load the palette is fatal; containers that carry direct color don't need
// one.
func NewSession(path, palettePath string, profile ape.Profile, opts ...Option) (*Session, error) {
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ape.Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return newSession(path, c, palettePath, profile, opts...)
}

func newSession(path string, c *ape.Container, palettePath string, profile ape.Profile, opts ...Option) (*Session, error) {
	if profile != ape.ProfileRGBA && profile != ape.ProfileBGRA {
		return nil, ape.ErrInvalidProfile
	}

	s := &Session{
		path:      path,
		profile:   profile,
		container: c,
		workers:   1,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	if c.Header.DirectColor() {
		if palettePath != "" {
			s.logger.Printf("%s carries direct color, ignoring palette %s\n", path, palettePath)
		}
		return s, nil
	}

	if palettePath == "" {
		palettePath = palette.ResolvePath(c.Header.PaletteName, path)
	}
	b, err := readFile(palettePath)
	if err != nil {
		return nil, err
	}
	if s.palette, err = palette.Decode(b); err != nil {
		return nil, errors.Wrap(err, palettePath)
	}
	s.palettePath = palettePath

	return s, nil
}

// WithSession opens a session, passes it to fn and closes it afterwards.
func WithSession(path, palettePath string, profile ape.Profile, fn func(*Session) error, opts ...Option) error {
	s, err := NewSession(path, palettePath, profile, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Header returns the container header.
func (s *Session) Header() ape.Header {
	if s.container == nil {
		return ape.Header{}
	}
	return s.container.Header
}

// PalettePath returns the path the palette was loaded from, empty for
// direct color containers.
func (s *Session) PalettePath() string {
	return s.palettePath
}

// HasBackground reports whether the container has a background frame.
func (s *Session) HasBackground() bool {
	return s.container != nil && s.container.Background() >= 0
}

// Close releases the container and palette.
func (s *Session) Close() error {
	s.container = nil
	s.palette = nil
	return nil
}

// Animation is the result of decoding a session.
type Animation struct {
	*frameset.Result

	Speed  uint32
	Total  int   // frame records in the container
	Failed []int // stored indices of frames that couldn't be decoded
}

// PartialError is returned alongside an Animation when some frames failed
// to decode.
type PartialError struct {
	Total  int
	Errors []*ape.FrameError
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("apecore: %d of %d frames failed to decode", len(e.Errors), e.Total)
}

// Failed returns the stored indices of the failed frames.
func (e *PartialError) Failed() []int {
	failed := make([]int, len(e.Errors))
	for i, fe := range e.Errors {
		failed[i] = fe.Index
	}
	return failed
}

func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

type decodeResult struct {
	frame ape.DecodedFrame
	err   error
}

func (s *Session) frameWorker(in <-chan int, results []decodeResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for i := range in {
		f, err := ape.DecodeFrame(s.container.Frames[i], s.palette, s.profile)
		results[i] = decodeResult{f, err}
	}
}

func (s *Session) decodeFrames() []decodeResult {
	frames := s.container.Frames
	results := make([]decodeResult, len(frames))

	if s.workers <= 1 {
		for i, f := range frames {
			d, err := ape.DecodeFrame(f, s.palette, s.profile)
			results[i] = decodeResult{d, err}
		}
		return results
	}

	in := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < s.workers && i < len(frames); i++ {
		wg.Add(1)
		go s.frameWorker(in, results, &wg)
	}
	for i := range frames {
		in <- i
	}
	close(in)
	wg.Wait()

	return results
}

// DecodeAll decodes every frame and assembles them in presentation order.
// Frames that fail to decode are left out; in that case the Animation is
// still returned along with a *PartialError naming them. If every frame
// failed the Animation holds no frames.
func (s *Session) DecodeAll(opts frameset.Options) (*Animation, error) {
	if s.container == nil {
		return nil, ErrSessionClosed
	}
	if len(s.container.Frames) == 0 {
		return nil, ape.ErrEmptyAnimation
	}

	anim := &Animation{
		Speed: s.container.Header.Speed,
		Total: len(s.container.Frames),
	}

	var (
		decoded []ape.DecodedFrame
		partial *PartialError
	)
	for _, r := range s.decodeFrames() {
		if r.err != nil {
			var fe *ape.FrameError
			if !errors.As(r.err, &fe) {
				return nil, r.err
			}
			if partial == nil {
				partial = &PartialError{Total: anim.Total}
			}
			partial.Errors = append(partial.Errors, fe)
			anim.Failed = append(anim.Failed, fe.Index)
			s.logger.Printf("%s: %v\n", s.path, r.err)
			continue
		}
		decoded = append(decoded, r.frame)
	}

	var err error
	if partial != nil {
		err = partial
	}

	if len(decoded) == 0 {
		anim.Result = &frameset.Result{}
		return anim, err
	}

	bg := s.container.Background()
	if bg >= 0 && slices.Contains(anim.Failed, bg) {
		s.logger.Printf("%s: background frame %d failed to decode\n", s.path, bg)
	}

	res, aerr := frameset.Assemble(decoded, bg, opts)
	if aerr != nil {
		return nil, aerr
	}
	for _, w := range res.Warnings {
		s.logger.Printf("%s: %s\n", s.path, w)
	}

	if s.noAlpha {
		res = frameset.CompositeAll(res, s.fill)
	}
	anim.Result = res

	return anim, err
}
