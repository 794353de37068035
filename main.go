package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rneatherway/etchplate/grid"
	"github.com/rneatherway/etchplate/internal/config"
	"github.com/rneatherway/etchplate/internal/logger"
	"github.com/rneatherway/etchplate/internal/output"
	"github.com/rneatherway/etchplate/mesh"
	"github.com/rneatherway/etchplate/raster"
	"github.com/rneatherway/etchplate/stlout"
)

// options are the command line settings that are not part of the config file.
type options struct {
	configPath  string
	writeConfig string
	output      string
	force       bool
	never       bool
	scalePct    float64
}

// parseFlags applies the flags set on the command line on top of cfg.
func parseFlags(fs *flag.FlagSet, args []string, cfg *config.Config) (*options, error) {
	var opts options
	var (
		thickness  = fs.Float64("t", cfg.Plate.Thickness, "plate thickness in mm")
		pixelSize  = fs.Float64("p", cfg.Plate.PixelSize, "pixel size in mm")
		pixelPitch = fs.Float64("P", cfg.Plate.PixelPitch, "gap between pixels in mm, 0 for a contiguous surface")
		depth      = fs.Float64("d", cfg.Plate.Depth, "etch depth in mm")
		border     = fs.Int("f", cfg.Plate.Border, "frame width in pixels")
		borderFill = fs.String("border-fill", cfg.Plate.BorderFill, "frame cells: recessed or raised")
		threshold  = fs.Int("threshold", cfg.Image.Threshold, "grey level from which a pixel is raised, without dithering")
		dither     = fs.Bool("dither", cfg.Image.Dither, "dither the image instead of thresholding it")
		invert     = fs.Bool("invert", cfg.Image.Invert, "raise dark pixels instead of light ones")
		gdal       = fs.Bool("gdal", cfg.Image.GDAL, "read the image through GDAL")
		ascii      = fs.Bool("ascii", cfg.Output.ASCII, "write ASCII STL")
		check      = fs.Bool("check", cfg.Output.Check, "check the mesh is closed before writing it")
		logLevel   = fs.String("log-level", cfg.Logging.Level, "log level: debug, info, warn or error")
		logFile    = fs.String("log-file", cfg.Logging.LogFile, "also log to this file")
	)
	fs.Float64Var(&opts.scalePct, "s", cfg.Plate.Scale*100, "scale the image by this percentage")
	fs.StringVar(&opts.output, "o", "", "output file, .stl or .png (default input name with .stl)")
	fs.BoolVar(&opts.force, "y", false, "overwrite the output without asking")
	fs.BoolVar(&opts.never, "n", false, "never overwrite the output")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.writeConfig, "write-config", "", "write the effective config to this file and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage of %s [OPTIONS] <input image>:\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.force && opts.never {
		return nil, errors.New("-y and -n are mutually exclusive")
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.Plate.Thickness = *thickness
		case "p":
			cfg.Plate.PixelSize = *pixelSize
		case "P":
			cfg.Plate.PixelPitch = *pixelPitch
		case "d":
			cfg.Plate.Depth = *depth
		case "s":
			cfg.Plate.Scale = opts.scalePct / 100
		case "f":
			cfg.Plate.Border = *border
		case "border-fill":
			cfg.Plate.BorderFill = *borderFill
		case "threshold":
			cfg.Image.Threshold = *threshold
		case "dither":
			cfg.Image.Dither = *dither
		case "invert":
			cfg.Image.Invert = *invert
		case "gdal":
			cfg.Image.GDAL = *gdal
		case "ascii":
			cfg.Output.ASCII = *ascii
		case "check":
			cfg.Output.Check = *check
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-file":
			cfg.Logging.LogFile = *logFile
		case "y":
			cfg.Output.Overwrite = config.OverwriteAlways
		case "n":
			cfg.Output.Overwrite = config.OverwriteNever
		}
	})
	return &opts, nil
}

// configFlag finds -config before the full parse so the file can supply flag defaults.
func configFlag(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func realMain(args []string, stdin io.Reader, stderr io.Writer) error {
	name := filepath.Base(os.Args[0])

	cfg, err := config.Load(configFlag(args))
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts, err := parseFlags(fs, args, cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, stderr); err != nil {
		return errors.Wrap(err, "logger")
	}
	defer logger.Sync()

	if opts.writeConfig != "" {
		logger.Sugar.Infof("Writing config to '%s'", opts.writeConfig)
		return cfg.Save(opts.writeConfig)
	}

	switch fs.NArg() {
	case 0:
		fs.Usage()
		return errors.New("no input file given")
	case 1:
		// Great
	default:
		fs.Usage()
		return errors.Errorf("unrecognised arguments %s", strings.Join(fs.Args()[1:], ", "))
	}
	input := fs.Arg(0)

	out := opts.output
	if out == "" {
		out = output.DefaultName(input, ".stl")
	}
	if ext := strings.ToLower(filepath.Ext(out)); ext != ".stl" && ext != ".png" {
		return errors.Errorf("unsupported output format %q", ext)
	}

	err = run(cfg, input, out, output.Prompt(stdin, stderr, name))
	if errors.Is(err, output.ErrExists) || errors.Is(err, output.ErrDeclined) {
		logger.Log.Info("Skipping existing output", zap.String("output", out), zap.String("reason", errors.Cause(err).Error()))
		return nil
	}
	return err
}

// run turns the image at input into a plate written to out.
func run(cfg *config.Config, input, out string, ask output.AskFunc) error {
	logger.Log.Debug("Settings",
		zap.Any("plate", cfg.Plate),
		zap.Any("image", cfg.Image),
		zap.Any("output", cfg.Output))

	img, err := loadImage(input, cfg.Image.GDAL)
	if err != nil {
		return err
	}

	o := cfg.RasterOptions()
	if o.Scale != 1 {
		logger.Sugar.Infof("Scaling image by %g%%", o.Scale*100)
	}
	g, err := raster.ToGrid(img, o)
	if err != nil {
		return err
	}
	if cfg.Plate.Border > 0 {
		g = g.Pad(cfg.Plate.Border, cfg.BorderFill())
	}
	logger.Log.Info("Bitonal grid",
		zap.Int("width", g.Width()),
		zap.Int("height", g.Height()),
		zap.Int("raised", g.Count(grid.Raised)),
		zap.Int("recessed", g.Count(grid.Recessed)))

	if strings.EqualFold(filepath.Ext(out), ".png") {
		return writeFile(out, cfg.Output.Overwrite, ask, func(w io.Writer) error {
			logger.Sugar.Infof("Converting to PNG file '%s'", out)
			return png.Encode(w, g.ToImage())
		})
	}

	p := cfg.Params()
	m, err := mesh.Build(g, p)
	if err != nil {
		return err
	}
	lo, hi := m.Bounds()
	logger.Log.Info("Built plate",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("triangles", len(m.Triangles)),
		zap.Bool("contiguous", p.Contiguous()),
		zap.Float64("width_mm", hi[0]-lo[0]),
		zap.Float64("height_mm", hi[1]-lo[1]))

	if cfg.Output.Check {
		checkMesh(m)
	}

	return writeFile(out, cfg.Output.Overwrite, ask, func(w io.Writer) error {
		logger.Sugar.Infof("Converting to STL file '%s'", out)
		if cfg.Output.ASCII {
			return stlout.WriteASCII(w, m, strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)))
		}
		return stlout.Write(w, m)
	})
}

func loadImage(path string, useGDAL bool) (image.Image, error) {
	if useGDAL {
		pb, err := FromGDAL(path)
		if err != nil {
			return nil, err
		}
		return pb.ToImage(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := raster.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	b := img.Bounds()
	logger.Sugar.Infof("Loaded %s image '%s', %dx%d", format, path, b.Dx(), b.Dy())
	return img, nil
}

func checkMesh(m *mesh.Mesh) {
	r := m.Inspect()
	if r.Closed() {
		logger.Log.Info("Mesh is closed", zap.Float64("volume_mm3", m.Volume()))
		return
	}
	logger.Log.Warn("Mesh is not closed",
		zap.Int("boundary_edges", len(r.Boundary)),
		zap.Int("non_manifold_edges", len(r.NonManifold)),
		zap.Int("flipped_edges", len(r.Flipped)),
		zap.Int("degenerate_triangles", len(r.Degenerate)))
}

// writeFile opens path under the overwrite policy and hands it to write through a buffer.
func writeFile(path, policy string, ask output.AskFunc, write func(io.Writer) error) error {
	f, err := output.Open(path, policy, ask)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func main() {
	err := realMain(os.Args[1:], os.Stdin, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
