// mserial inspects mserial tags and container files.
//
// Usage:
//
//	mserial tag <tag>                      parse a tag and print its structure
//	mserial dump [flags] <file|->          visit a container and print its payload
//	mserial convert [flags] <in> <out>     rewrite a container with another compression
//	mserial example [flags] <out>          write a sample container
//
// Settings come from an optional TOML file (--config); flags override it.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/shengyanli1982/mserial"
	"github.com/shengyanli1982/mserial/internal/config"
	"github.com/shengyanli1982/mserial/internal/container"
	"github.com/shengyanli1982/mserial/internal/export"
	"github.com/shengyanli1982/mserial/internal/logging"
	"github.com/shengyanli1982/mserial/visitors"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env 是一次命令执行的上下文
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	command, args := args[0], args[1:]

	var (
		configPath  string
		maxSeq      uint32
		maxDepth    int
		unknownEnum string
		format      string
		compression string
		logLevel    string
	)
	flagSet := pflag.NewFlagSet("mserial "+command, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to a TOML config file")
	flagSet.Uint32Var(&maxSeq, "max-sequence-length", 0, "reject sequences longer than this (0: unlimited)")
	flagSet.IntVar(&maxDepth, "max-tag-depth", 0, "maximum tag nesting depth")
	flagSet.StringVar(&unknownEnum, "unknown-enum", "", "unknown enum values: allow or reject")
	flagSet.StringVarP(&format, "format", "f", "", "output format: text, yaml, json, cbor or cbor-diag")
	flagSet.StringVarP(&compression, "compression", "c", "", "container compression: none, lz4 or zstd")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := overrideConfig(&cfg, flagSet, maxSeq, maxDepth, unknownEnum, format, compression, logLevel); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	e := &env{
		cfg:    cfg,
		logger: logging.New(stderr, logCfg),
		stdin:  stdin,
		stdout: stdout,
	}

	positional := flagSet.Args()
	switch command {
	case "tag":
		if len(positional) != 1 {
			return errors.New("usage: mserial tag <tag>")
		}
		return e.runTag(positional[0])
	case "dump":
		if len(positional) != 1 {
			return errors.New("usage: mserial dump [flags] <file|->")
		}
		return e.runDump(positional[0])
	case "convert":
		if len(positional) != 2 {
			return errors.New("usage: mserial convert [flags] <in> <out>")
		}
		return e.runConvert(positional[0], positional[1])
	case "example":
		if len(positional) != 1 {
			return errors.New("usage: mserial example [flags] <out>")
		}
		return e.runExample(positional[0])
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

func overrideConfig(cfg *config.Config, flagSet *pflag.FlagSet, maxSeq uint32, maxDepth int, unknownEnum, format, compression, logLevel string) error {
	if flagSet.Changed("max-sequence-length") {
		cfg.MaxSequenceLength = maxSeq
	}
	if flagSet.Changed("max-tag-depth") {
		cfg.MaxTagDepth = maxDepth
	}
	if flagSet.Changed("unknown-enum") {
		policy, err := mserial.ParseEnumPolicy(unknownEnum)
		if err != nil {
			return err
		}
		cfg.UnknownEnum = policy
	}
	if flagSet.Changed("format") {
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		cfg.Format = f
	}
	if flagSet.Changed("compression") {
		c, err := container.ParseCompression(compression)
		if err != nil {
			return err
		}
		cfg.Compression = c
	}
	if flagSet.Changed("log-level") {
		lvl, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", logLevel)
		}
		cfg.LogLevel = lvl
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage:
  mserial tag <tag>
  mserial dump [flags] <file|->
  mserial convert [flags] <in> <out>
  mserial example [flags] <out>`)
}

func (e *env) options() *mserial.Options {
	return e.cfg.Options(&e.logger)
}

// runTag 解析标签并按缩进输出语法树
func (e *env) runTag(tag string) error {
	schema, err := mserial.ParseTagWithOptions(tag, e.options())
	if err != nil {
		return err
	}
	var b strings.Builder
	describe(&b, schema.Root(), 0)
	_, err = io.WriteString(e.stdout, b.String())
	return err
}

func describe(b *strings.Builder, n *mserial.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case mserial.NodePrimitive:
		fmt.Fprintf(b, "%s%s\n", indent, n.Prim)
	case mserial.NodeSequence:
		fmt.Fprintf(b, "%ssequence\n", indent)
		describe(b, n.Elem, depth+1)
	case mserial.NodeAggregate:
		fmt.Fprintf(b, "%s%s\n", indent, n.Name)
		for _, f := range n.Fields {
			name := f.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(b, "%s  .%s\n", indent, name)
			describe(b, f.Node, depth+2)
		}
	case mserial.NodeBackRef:
		fmt.Fprintf(b, "%s-> %s (%d scopes out)\n", indent, n.Name, n.Index)
	case mserial.NodeEnum:
		fmt.Fprintf(b, "%senum %s (%s)\n", indent, n.Name, n.Prim)
		for _, en := range n.Enumerators {
			ev := mserial.EnumEvent{Code: n.Prim, Bits: en.Bits}
			fmt.Fprintf(b, "%s  %s = %s\n", indent, en.Name, ev.Hex())
		}
	}
}

func (e *env) openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(e.stdin), nil
	}
	return os.Open(path)
}

// runDump 打开容器并按配置的格式输出负载
func (e *env) runDump(path string) error {
	in, err := e.openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	c, err := container.Open(in, e.options())
	if err != nil {
		return err
	}
	defer c.Close()

	schema, err := c.Schema()
	if err != nil {
		return err
	}
	e.logger.Debug().
		Str("tag", c.Header.Tag).
		Str("compression", c.Header.Compression.String()).
		Msg("container opened")

	if e.cfg.Format == export.FormatText {
		text := visitors.NewText()
		if err := schema.Visit(text, c.Payload()); err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.stdout, text.String())
		return err
	}

	tree := visitors.NewTree()
	if err := schema.Visit(tree, c.Payload()); err != nil {
		return err
	}
	value, _ := tree.Value()
	return export.Write(e.stdout, e.cfg.Format, value)
}

// runConvert 以新的压缩方式重写容器，负载按字节复制
func (e *env) runConvert(inPath, outPath string) error {
	in, err := e.openInput(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	c, err := container.Open(in, e.options())
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := container.NewWriter(out, c.Header.Tag, e.cfg.Compression)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, c.Payload())
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	e.logger.Info().
		Str("from", c.Header.Compression.String()).
		Str("to", e.cfg.Compression.String()).
		Str("bytes", strconv.FormatInt(n, 10)).
		Msg("container converted")
	return out.Close()
}

// runExample 写入一个示例容器，内容是一个三节点链表的任务队列
func (e *env) runExample(outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	q := sampleQueue()
	w, err := container.NewWriter(out, queueCodec.Tag(), e.cfg.Compression)
	if err != nil {
		return err
	}
	if err := mserial.Serialize(w, queueCodec, &q); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return out.Close()
}
