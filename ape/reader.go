package ape

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Container is a parsed but undecoded APE file.
type Container struct {
	Header Header
	Frames []Frame
}

// Background returns the stored index of the background frame, or -1.
func (c *Container) Background() int {
	if !c.Header.Background || len(c.Frames) == 0 {
		return -1
	}
	return len(c.Frames) - 1
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type decoder struct {
	r *bytes.Reader

	header Header
	frames []Frame

	// Enough to hold the FATZ block or a frame header
	tmp [frameHeaderSize]byte
}

func (d *decoder) readHeader() error {
	if d.r.Len() >= len(fatzMagic) {
		if err := readFull(d.r, d.tmp[:len(fatzMagic)]); err != nil {
			return err
		}
		if string(d.tmp[:len(fatzMagic)]) == fatzMagic {
			if err := readFull(d.r, d.tmp[:fatzSize-len(fatzMagic)]); err != nil {
				return err
			}
			// Four reserved bytes then the flag
			d.header.Background = d.tmp[fatzSize-len(fatzMagic)-1] != 0
		} else if _, err := d.r.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	if err := readFull(d.r, d.tmp[:8]); err != nil {
		return err
	}
	d.header.Speed = binary.LittleEndian.Uint32(d.tmp[0:])

	n := binary.LittleEndian.Uint32(d.tmp[4:])
	if n > maxPaletteName || int64(n) > int64(d.r.Len()) {
		return ErrNotAnApeFile
	}
	name := make([]byte, n)
	if err := readFull(d.r, name); err != nil {
		return err
	}
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	d.header.PaletteName = string(name)

	if err := readFull(d.r, d.tmp[:4]); err != nil {
		return err
	}
	d.header.FrameCount = binary.LittleEndian.Uint32(d.tmp[:])
	if d.header.FrameCount > maxFrames {
		return ErrNotAnApeFile
	}
	if d.header.Background && d.header.FrameCount == 0 {
		return ErrNotAnApeFile
	}

	return nil
}

func (d *decoder) readFrames(b []byte) error {
	d.frames = make([]Frame, 0, d.header.FrameCount)
	for i := 0; i < int(d.header.FrameCount); i++ {
		if err := readFull(d.r, d.tmp[:4]); err != nil {
			return err
		}
		size := binary.LittleEndian.Uint32(d.tmp[:])
		if size < frameHeaderSize || int64(size) > int64(d.r.Len()) {
			return ErrNotAnApeFile
		}

		start := len(b) - d.r.Len()
		if err := readFull(d.r, d.tmp[:frameHeaderSize]); err != nil {
			return err
		}
		d.frames = append(d.frames, Frame{
			Index:    i,
			Size:     size,
			Height:   binary.LittleEndian.Uint16(d.tmp[0:]),
			Width:    binary.LittleEndian.Uint16(d.tmp[2:]),
			X:        int16(binary.LittleEndian.Uint16(d.tmp[4:])),
			Y:        int16(binary.LittleEndian.Uint16(d.tmp[6:])),
			Reserved: binary.LittleEndian.Uint16(d.tmp[8:]),
			Data:     b[start+frameHeaderSize : start+int(size) : start+int(size)],
		})

		if _, err := d.r.Seek(int64(size)-frameHeaderSize, io.SeekCurrent); err != nil {
			return err
		}
	}

	if d.r.Len() != 0 {
		return ErrNotAnApeFile
	}
	return nil
}

func (d *decoder) decode(b []byte, headerOnly bool) (int, error) {
	d.r = bytes.NewReader(b)

	if err := d.readHeader(); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, ErrNotAnApeFile
		}
		return 0, err
	}
	consumed := len(b) - d.r.Len()

	if headerOnly {
		return consumed, nil
	}

	if err := d.readFrames(b); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, ErrNotAnApeFile
		}
		return 0, err
	}

	return consumed, nil
}

// ParseHeader reads the container header from the start of b and returns it
// along with the number of bytes it occupies. Frame records are not looked at.
func ParseHeader(b []byte) (Header, int, error) {
	var d decoder
	n, err := d.decode(b, true)
	if err != nil {
		return Header{}, 0, err
	}
	return d.header, n, nil
}

// Parse reads the header and splits b into frame records. Record boundaries
// are checked but no pixel data is decoded, which keeps it cheap enough to
// run on every candidate file. The returned frames share memory with b.
func Parse(b []byte) (*Container, error) {
	var d decoder
	if _, err := d.decode(b, false); err != nil {
		return nil, err
	}
	return &Container{
		Header: d.header,
		Frames: d.frames,
	}, nil
}
