// Package container implements the mserial container file: a short header
// carrying the tag of the payload, followed by the payload itself,
// optionally compressed.
//
// Layout:
//
//	"MSRL"                       magic
//	{ContainerHeader`compression'/B`Compression'0`none'1`lz4'2`zstd'\`tag't`fingerprint'<B>}
//	payload                      one value described by tag, compressed as selected
//
// The fingerprint is a keyed BLAKE3 hash of the tag; reading a container
// verifies it before the payload is handed out.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/shengyanli1982/mserial"
)

// Magic 是容器文件的前 4 个字节
var Magic = [4]byte{'M', 'S', 'R', 'L'}

var (
	// ErrBadMagic 表示输入不是容器文件
	ErrBadMagic = errors.New("container: bad magic")

	// ErrFingerprint 表示标签指纹不匹配
	ErrFingerprint = errors.New("container: tag fingerprint mismatch")
)

// Compression 标识负载使用的压缩算法
// 取值写入容器头，修改取值会破坏格式兼容性
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// compressionCodec 是 Compression 的枚举编解码器
var compressionCodec = mserial.NewEnum[Compression]("Compression",
	mserial.EnumValue[Compression]{Name: "none", Value: CompressionNone},
	mserial.EnumValue[Compression]{Name: "lz4", Value: CompressionLZ4},
	mserial.EnumValue[Compression]{Name: "zstd", Value: CompressionZstd},
)

func (c Compression) String() string {
	if name, ok := compressionCodec.Enumerator(c); ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// ParseCompression 解析压缩算法名称
func ParseCompression(name string) (Compression, error) {
	for _, v := range compressionCodec.Values() {
		if v.Name == name {
			return v.Value, nil
		}
	}
	if name == "" {
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("unknown compression %q (must be none, lz4 or zstd)", name)
}

// Header 是容器头
type Header struct {
	Compression Compression
	Tag         string
	Fingerprint []byte
}

// headerCodec 是容器头的编解码器
var headerCodec = mserial.NewStruct[Header]("ContainerHeader",
	mserial.Field("compression", func(h *Header) *Compression { return &h.Compression }, compressionCodec),
	mserial.Field("tag", func(h *Header) *string { return &h.Tag }, mserial.String),
	mserial.Field("fingerprint", func(h *Header) *[]byte { return &h.Fingerprint }, mserial.Bytes),
)

// HeaderTag 返回容器头的标签
func HeaderTag() string { return headerCodec.Tag() }

// fingerprintKey 是标签指纹的 BLAKE3 密钥，按 ASCII 填充到 32 字节
var fingerprintKey = [32]byte{
	'm', 's', 'e', 'r', 'i', 'a', 'l', '.', 'c', 'o', 'n', 't', 'a', 'i', 'n', 'e',
	'r', '.', 't', 'a', 'g', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint 返回标签的 BLAKE3 密钥哈希
func Fingerprint(tag string) []byte {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("container: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(tag))
	return hasher.Sum(nil)
}

// NewWriter 写入容器头，返回负载的写入端
// 调用方必须在写完负载后调用 Close 以刷新压缩器，Close 不会关闭 w。
//
// NewWriter writes the container header to w and returns the payload
// writer. Close flushes the compressor; it does not close w.
func NewWriter(w io.Writer, tag string, c Compression) (io.WriteCloser, error) {
	if _, ok := compressionCodec.Enumerator(c); !ok {
		return nil, fmt.Errorf("container: unsupported compression %d", uint8(c))
	}
	if _, err := mserial.ParseTag(tag); err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	header := Header{Compression: c, Tag: tag, Fingerprint: Fingerprint(tag)}
	hw := mserial.NewWriter(w)
	if err := hw.WriteBytes(Magic[:]); err != nil {
		return nil, err
	}
	if err := headerCodec.Serialize(hw, &header); err != nil {
		return nil, err
	}

	switch c {
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("container: zstd encoder: %w", err)
		}
		return enc, nil
	default:
		return nopCloser{w}, nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Reader 是已打开的容器
type Reader struct {
	Header  Header
	payload *mserial.Reader
	close   func()
}

// Open 读取并校验容器头，返回可以读取负载的 Reader
// options 同时用于容器头和负载，例如 MaxSequenceLength 也限制标签长度。
//
// Open reads and verifies the container header. options apply to both the
// header and the payload.
func Open(r io.Reader, options *mserial.Options) (*Reader, error) {
	hr, err := mserial.NewReaderWithOptions(r, options)
	if err != nil {
		return nil, err
	}
	var magic [4]byte
	if err := hr.ReadFull(magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	var header Header
	if err := headerCodec.Deserialize(hr, &header); err != nil {
		return nil, fmt.Errorf("container: header: %w", err)
	}
	if !bytes.Equal(header.Fingerprint, Fingerprint(header.Tag)) {
		return nil, ErrFingerprint
	}

	cr := &Reader{Header: header, close: func() {}}
	var src io.Reader
	switch header.Compression {
	case CompressionNone:
		src = r
	case CompressionLZ4:
		src = lz4.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("container: zstd decoder: %w", err)
		}
		src = dec
		cr.close = dec.Close
	default:
		return nil, fmt.Errorf("container: unsupported compression %d", uint8(header.Compression))
	}

	cr.payload, err = mserial.NewReaderWithOptions(src, options)
	if err != nil {
		return nil, err
	}
	return cr, nil
}

// Payload 返回负载的读取端
func (r *Reader) Payload() *mserial.Reader { return r.payload }

// Schema 解析容器头中的标签
func (r *Reader) Schema() (*mserial.Schema, error) {
	return mserial.ParseTagWithOptions(r.Header.Tag, r.payload.Options())
}

// Close 释放解压缩器，不会关闭底层读取端
func (r *Reader) Close() error {
	r.close()
	return nil
}
