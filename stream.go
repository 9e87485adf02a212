package mserial

import (
	"encoding/binary"
	"io"
	"math"
)

// byteChunk 是读取长字节序列时每次分配的块大小
// 长度前缀再大，内存也只随实际读到的数据增长
const byteChunk = 64 << 10

// Writer 是字节写入端，包装了 io.Writer
// 所有写入错误都以 IOError 返回，已写入的数据不会回滚
//
// Writer is the byte sink every codec writes to. Write failures surface as
// *IOError; bytes already written are not rolled back.
type Writer struct {
	w       io.Writer
	scratch [8]byte
	written int64
}

// NewWriter 创建一个写入 w 的 Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write 实现 io.Writer 接口
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.written += int64(n)
	return n, err
}

// WriteBytes 写入全部字节，失败或短写时返回 IOError
//
// WriteBytes writes all of p or fails with an *IOError.
func (w *Writer) WriteBytes(p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	if n < len(p) {
		return &IOError{Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

func (w *Writer) writeString(s string) error {
	n, err := io.WriteString(w.w, s)
	w.written += int64(n)
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	if n < len(s) {
		return &IOError{Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

// Written 返回已写入的字节数
func (w *Writer) Written() int64 { return w.written }

// putUint 按本机字节序写入 size 字节宽的整数
func (w *Writer) putUint(size int, u uint64) error {
	switch size {
	case 1:
		w.scratch[0] = byte(u)
	case 2:
		binary.NativeEndian.PutUint16(w.scratch[:], uint16(u))
	case 4:
		binary.NativeEndian.PutUint32(w.scratch[:], uint32(u))
	default:
		size = 8
		binary.NativeEndian.PutUint64(w.scratch[:], u)
	}
	return w.WriteBytes(w.scratch[:size])
}

// putCount 写入序列长度前缀
func (w *Writer) putCount(n int) error {
	if uint64(n) > math.MaxUint32 {
		return valueErrorf("sequence of %d elements exceeds the count prefix range", n)
	}
	return w.putUint(4, uint64(n))
}

// Reader 是字节读取端，包装了 io.Reader
// 每次读取要么返回请求的全部字节，要么返回 IOError，不允许静默短读。
// Reader 不会预读，调用方可以在解码标签后继续用同一个 Reader 访问剩余数据。
//
// Reader is the byte source every codec reads from. A read either returns
// exactly the requested bytes or fails with an *IOError. Reader never reads
// ahead, so a caller may decode a tag and then visit the rest of the stream
// with the same Reader.
type Reader struct {
	r        io.Reader
	scratch  [8]byte
	consumed int64
	options  *Options
}

// NewReader 使用默认选项创建 Reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, options: defaultOptions}
}

// NewReaderWithOptions 使用指定的选项创建 Reader
func NewReaderWithOptions(r io.Reader, options *Options) (*Reader, error) {
	resolved, err := resolveOptions(options)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, options: resolved}, nil
}

// Read 实现 io.Reader 接口
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.consumed += int64(n)
	return n, err
}

// ReadFull 读取恰好 len(p) 个字节，否则返回 IOError
// 流在任何字节之前结束时包装 io.EOF，中途结束时包装 io.ErrUnexpectedEOF
//
// ReadFull reads exactly len(p) bytes or fails with an *IOError wrapping
// io.EOF (nothing read) or io.ErrUnexpectedEOF (short read).
func (r *Reader) ReadFull(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.consumed += int64(n)
	if err != nil {
		return &IOError{Op: "read", Err: err}
	}
	return nil
}

// Consumed 返回已读取的字节数
func (r *Reader) Consumed() int64 { return r.consumed }

// Options 返回 Reader 使用的选项，调用方不应修改
func (r *Reader) Options() *Options { return r.options }

// getUint 按本机字节序读取 size 字节宽的整数
func (r *Reader) getUint(size int) (uint64, error) {
	if size != 1 && size != 2 && size != 4 {
		size = 8
	}
	if err := r.ReadFull(r.scratch[:size]); err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(r.scratch[0]), nil
	case 2:
		return uint64(binary.NativeEndian.Uint16(r.scratch[:])), nil
	case 4:
		return uint64(binary.NativeEndian.Uint32(r.scratch[:])), nil
	default:
		return binary.NativeEndian.Uint64(r.scratch[:]), nil
	}
}

// readCount 读取序列长度前缀，并检查 MaxSequenceLength
func (r *Reader) readCount() (uint32, error) {
	u, err := r.getUint(4)
	if err != nil {
		return 0, err
	}
	n := uint32(u)
	if limit := r.options.MaxSequenceLength; limit > 0 && n > limit {
		r.options.logger().Debug().
			Uint32("count", n).
			Uint32("limit", limit).
			Int64("offset", r.consumed).
			Msg("sequence count rejected")
		return 0, valueErrorf("sequence length %d exceeds limit %d", n, limit)
	}
	return n, nil
}

// readBytes 读取 n 个字节
// 不按长度前缀一次性分配，超过 byteChunk 时分块读取
func (r *Reader) readBytes(n uint32) ([]byte, error) {
	if n <= byteChunk {
		buf := make([]byte, n)
		if err := r.ReadFull(buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	buf := make([]byte, 0, byteChunk)
	// 保持 uint32 计数，32 位平台上 int(n) 可能为负
	remaining := n
	for remaining > 0 {
		step := min(remaining, byteChunk)
		start := len(buf)
		buf = append(buf, make([]byte, step)...)
		if err := r.ReadFull(buf[start:]); err != nil {
			return nil, err
		}
		remaining -= step
	}
	return buf, nil
}

// readString 读取长度前缀的字符串
func (r *Reader) readString() (string, error) {
	n, err := r.readCount()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
