package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyuri/esmkit/internal/binary"
	"github.com/dyuri/esmkit/internal/model"
	"github.com/dyuri/esmkit/internal/text"
	"github.com/dyuri/esmkit/internal/vfs"
	"github.com/dyuri/esmkit/pkg/esmkit"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "esmkit",
	Short: "Inspect ESM4 content files",
	Long: `esmkit is a tool for working with ESM4 content files, the record
format of Oblivion, Fallout 3, Fallout New Vegas and Skyrim.

It can print file headers, dump the group and record tree, list
localized strings, validate the structure of a file and resolve a whole
load order. Files can be read from a directory or from inside a disk
image.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(stringsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	pf.String("log-format", "text", "Log format: text, json")
	pf.String("encoding", "", "Legacy text encoding: win1250, win1251, win1252, cp437, utf8")
	pf.String("language", "English", "Language suffix of the string tables")
	pf.Bool("ignore-missing-strings", false, "Use empty text for missing localized strings")
	pf.Bool("strict-strings", false, "Fail on strings without a terminating NUL")
	pf.String("image", "", "Read files from inside a disk image (ISO, FAT)")
	pf.Int("partition", 0, "Partition of the disk image, 0 for the whole disk")
	pf.String("data", "", "Data directory holding the Strings tables (default: next to the file)")
	pf.Int("inflate-cache", 0, "Number of decompressed records kept in memory")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	format, _ := cmd.Flags().GetString("log-format")

	switch format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	level := logrus.InfoLevel
	switch {
	case verbose >= 2:
		level = logrus.TraceLevel
	case verbose == 1:
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	return nil
}

// source opens content files from the host file system or from a disk
// image, with the decoder options given on the command line
type source struct {
	image *vfs.Image
	data  string
	opts  esmkit.Options
}

func newSource(cmd *cobra.Command) (*source, error) {
	flags := cmd.Flags()
	encoding, _ := flags.GetString("encoding")
	language, _ := flags.GetString("language")
	ignoreMissing, _ := flags.GetBool("ignore-missing-strings")
	strict, _ := flags.GetBool("strict-strings")
	imagePath, _ := flags.GetString("image")
	partition, _ := flags.GetInt("partition")
	data, _ := flags.GetString("data")
	cacheSize, _ := flags.GetInt("inflate-cache")

	s := &source{
		data: data,
		opts: esmkit.Options{
			Encoding:                      encoding,
			Language:                      language,
			IgnoreMissingLocalizedStrings: ignoreMissing,
			StrictStrings:                 strict,
			InflateCacheSize:              cacheSize,
			Logger:                        logrus.StandardLogger(),
		},
	}

	if imagePath != "" {
		img, err := vfs.OpenImage(imagePath, partition)
		if err != nil {
			return nil, err
		}
		s.image = img
	}

	if data != "" {
		if s.image != nil {
			s.opts.FS = vfs.Sub(s.image, data)
		} else {
			s.opts.FS = vfs.Dir(data)
		}
	}
	return s, nil
}

func (s *source) open(name string) (*esmkit.File, error) {
	if s.image != nil {
		return esmkit.OpenFS(s.image, name, s.opts)
	}
	return esmkit.Open(name, s.opts)
}

// fs returns the image file system, or nil for the host file system
func (s *source) fs() vfs.FS {
	if s.image == nil {
		return nil
	}
	return s.image
}

func (s *source) Close() error {
	if s.image == nil {
		return nil
	}
	return s.image.Close()
}

// openFile opens the single file argument of a command
func openFile(cmd *cobra.Command, name string) (*source, *esmkit.File, error) {
	src, err := newSource(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := src.open(name)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, f, nil
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info <file.esm>",
	Short: "Display file header information",
	Long: `Display the file header of a content file.

Shows the format version, header size variant, record count, flags,
author, description and the masters the file depends on.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("json", false, "Output as JSON")
}

// fileInfo is the header summary printed by info and dump
type fileInfo struct {
	File         string         `json:"file"`
	Version      float32        `json:"version"`
	HeaderSize   int            `json:"headerSize"`
	Records      int32          `json:"records"`
	NextObjectID uint32         `json:"nextObjectId"`
	Flags        uint32         `json:"flags"`
	Master       bool           `json:"master"`
	Localized    bool           `json:"localized"`
	Strings      int            `json:"strings,omitempty"`
	Author       string         `json:"author,omitempty"`
	Description  string         `json:"description,omitempty"`
	Masters      []model.Master `json:"masters"`
	Overrides    []model.FormId `json:"overrides,omitempty"`
	FileSize     int64          `json:"fileSize"`
}

func newFileInfo(f *esmkit.File) fileInfo {
	h := f.FileHeader()
	info := fileInfo{
		File:         f.Name(),
		Version:      h.Version,
		HeaderSize:   h.HeaderSize,
		Records:      h.NumRecords,
		NextObjectID: h.NextObjectID,
		Flags:        h.Flags,
		Master:       h.IsMaster(),
		Localized:    h.IsLocalized(),
		Author:       h.Author,
		Description:  h.Description,
		Masters:      h.Masters,
		Overrides:    f.Overrides(),
		FileSize:     f.FileSize(),
	}
	if info.Masters == nil {
		info.Masters = []model.Master{}
	}
	if idx := f.LocalizedStrings(); idx != nil {
		info.Strings = idx.Len()
	}
	return info
}

func runInfo(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	src, f, err := openFile(cmd, args[0])
	if err != nil {
		return err
	}
	defer src.Close()
	defer f.Close()

	info := newFileInfo(f)
	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	return outputInfoText(info)
}

func outputInfoText(info fileInfo) error {
	fmt.Printf("ESM File: %s\n", info.File)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	fmt.Println("Header:")
	fmt.Printf("  Version:          %.2f\n", info.Version)
	fmt.Printf("  Header size:      %d bytes\n", info.HeaderSize)
	fmt.Printf("  Records:          %d\n", info.Records)
	fmt.Printf("  Next object id:   0x%08x\n", info.NextObjectID)
	fmt.Printf("  Flags:            0x%08x%s\n", info.Flags, describeFlags(info))
	if info.Author != "" {
		fmt.Printf("  Author:           %s\n", info.Author)
	}
	if info.Description != "" {
		fmt.Printf("  Description:      %s\n", info.Description)
	}
	if info.Localized {
		fmt.Printf("  Strings:          %d\n", info.Strings)
	}
	fmt.Println()

	if len(info.Masters) > 0 {
		fmt.Println("Masters:")
		for i, m := range info.Masters {
			fmt.Printf("  [%02x] %s", i, m.Name)
			if m.Size != 0 {
				fmt.Printf(" (%d bytes)", m.Size)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	if len(info.Overrides) > 0 {
		fmt.Printf("Overrides:          %d\n", len(info.Overrides))
	}
	fmt.Printf("File Size:          %s (%d bytes)\n", formatBytes(info.FileSize), info.FileSize)
	return nil
}

func describeFlags(info fileInfo) string {
	var names []string
	if info.Master {
		names = append(names, "master")
	}
	if info.Localized {
		names = append(names, "localized")
	}
	if len(names) == 0 {
		return ""
	}
	return " (" + strings.Join(names, ", ") + ")"
}

// formatBytes renders n with binary unit prefixes, dropping a zero
// fraction: 512 B, 1 KiB, 2.5 MiB
func formatBytes(n int64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	v, u := float64(n), 0
	for v >= 1024 && u < len(units)-1 {
		v /= 1024
		u++
	}
	if u == 0 || v == float64(int64(v)) {
		return fmt.Sprintf("%d %s", int64(v), units[u])
	}
	return fmt.Sprintf("%.1f %s", v, units[u])
}

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file.esm>",
	Short: "Print the group and record tree",
	Long: `Walk a content file and print every group and record.

Records are listed with their type, remapped FormId, flags, size, editor
id and subrecord layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	dumpCmd.Flags().String("format", "text", "Output format: text, json")
	dumpCmd.Flags().BoolP("quiet", "q", false, "Print record counts per type only")
	dumpCmd.Flags().Bool("no-subrecords", false, "Skip the subrecord layout")
}

// dumpEntry is one line of the JSON dump
type dumpEntry struct {
	Header *fileInfo            `json:"header,omitempty"`
	Group  *model.GroupSummary  `json:"group,omitempty"`
	Record *model.RecordSummary `json:"record,omitempty"`
}

func runDump(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noSubRecords, _ := cmd.Flags().GetBool("no-subrecords")

	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	src, f, err := openFile(cmd, args[0])
	if err != nil {
		return err
	}
	defer src.Close()
	defer f.Close()

	// Determine output writer
	var output io.Writer = os.Stdout
	if outputPath != "" {
		out, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
		output = out
	}

	tw := text.NewWriter(output, noSubRecords)
	encoder := json.NewEncoder(output)
	counts := make(map[string]int)

	if !quiet {
		info := newFileInfo(f)
		if format == "json" {
			err = encoder.Encode(dumpEntry{Header: &info})
		} else {
			err = tw.WriteFileHeader(f.Name(), f.FileHeader(), info.Overrides)
		}
		if err != nil {
			return err
		}
	}

	err = f.Walk(
		func(r *binary.Reader) (bool, error) {
			rec, err := esmkit.Summarize(r)
			if err != nil {
				return true, err
			}
			counts[rec.Type]++

			switch {
			case quiet:
				return true, nil
			case format == "json":
				if noSubRecords {
					rec.SubRecords = nil
				}
				return true, encoder.Encode(dumpEntry{Record: &rec})
			default:
				return true, tw.WriteRecord(r.StackSize(), rec)
			}
		},
		func(r *binary.Reader, g model.GroupHeader) error {
			if quiet {
				return nil
			}
			grp := esmkit.SummarizeGroup(r, g)
			if format == "json" {
				return encoder.Encode(dumpEntry{Group: &grp})
			}
			return tw.WriteGroup(grp)
		},
	)
	if err != nil {
		return err
	}

	if quiet {
		return writeCounts(output, counts)
	}
	return nil
}

func writeCounts(w io.Writer, counts map[string]int) error {
	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	slices.Sort(types)

	for _, t := range types {
		if _, err := fmt.Fprintf(w, "%s %d\n", t, counts[t]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total %d\n", total)
	return err
}

// strings command
var stringsCmd = &cobra.Command{
	Use:   "strings <file.esm>",
	Short: "List the localized strings of a file",
	Long: `Print the localized string index of a file as id=value lines.

The file must be flagged as a localized master; its string tables are
read from the Strings directory next to it or below --data.`,
	Args: cobra.ExactArgs(1),
	RunE: runStrings,
}

func runStrings(cmd *cobra.Command, args []string) error {
	src, f, err := openFile(cmd, args[0])
	if err != nil {
		return err
	}
	defer src.Close()
	defer f.Close()

	idx := f.LocalizedStrings()
	if idx == nil {
		return fmt.Errorf("%s is not a localized file", f.Name())
	}

	values := make(map[uint32]string, idx.Len())
	ids := make([]uint32, 0, idx.Len())
	idx.Each(func(id uint32, value string) {
		ids = append(ids, id)
		values[id] = value
	})
	slices.Sort(ids)

	tw := text.NewWriter(os.Stdout, false)
	for _, id := range ids {
		if err := tw.WriteString(id, values[id]); err != nil {
			return err
		}
	}
	return nil
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file.esm>",
	Short: "Validate file structure",
	Long: `Read a content file from start to end and check its structure.

Every record is decoded down to its subrecords. The file is valid when
no fatal error occurs and every group closes exactly at the end of the
file. Recoverable anomalies are reported as warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("strict", false, "Fail on warnings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	v := newValidator(args[0], strict)
	logrus.AddHook(v)

	src, f, err := openFile(cmd, args[0])
	if err != nil {
		v.fatal(err)
		v.printResults(cmd.OutOrStdout())
		return fmt.Errorf("validation failed")
	}
	defer src.Close()
	defer f.Close()

	v.validate(f)
	v.printResults(cmd.OutOrStdout())

	if len(v.errors) > 0 || (strict && len(v.warnings) > 0) {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// finding is one problem reported by validate. record and where are
// empty when the problem is not tied to a position in the file.
type finding struct {
	record  string
	where   string
	message string
}

func (f finding) String() string {
	if f.where == "" {
		return f.message
	}
	return fmt.Sprintf("%s: %s", f.where, f.message)
}

// validator collects the errors of a full read and the warnings the
// decoder logs along the way
type validator struct {
	file     string
	strict   bool
	records  int
	groups   int
	errors   []finding
	warnings []finding
}

func newValidator(file string, strict bool) *validator {
	return &validator{file: file, strict: strict}
}

func (v *validator) error(format string, args ...any) {
	v.errors = append(v.errors, finding{message: fmt.Sprintf(format, args...)})
}

// fatal records err, placed at the decoder position it carries
func (v *validator) fatal(err error) {
	var de *binary.DecodeError
	if errors.As(err, &de) {
		v.errors = append(v.errors, finding{
			record:  de.Record.String(),
			where:   fmt.Sprintf("0x%x", de.Offset),
			message: de.Err.Error(),
		})
		return
	}
	v.error("%v", err)
}

func (v *validator) warning(format string, args ...any) {
	v.warnings = append(v.warnings, finding{message: fmt.Sprintf(format, args...)})
}

// Levels implements logrus.Hook
func (v *validator) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel}
}

// Fire implements logrus.Hook
func (v *validator) Fire(e *logrus.Entry) error {
	w := finding{message: e.Message}
	if rec, ok := e.Data["record"]; ok {
		w.record = fmt.Sprint(rec)
	}
	if off, ok := e.Data["offset"]; ok {
		w.where = fmt.Sprint(off)
	}
	if g, ok := e.Data["group"]; ok {
		w.message = fmt.Sprintf("%s (%v)", w.message, g)
	}
	v.warnings = append(v.warnings, w)
	return nil
}

func (v *validator) validate(f *esmkit.File) {
	err := f.Walk(
		func(r *binary.Reader) (bool, error) {
			v.records++
			_, err := esmkit.Summarize(r)
			return true, err
		},
		func(r *binary.Reader, g model.GroupHeader) error {
			v.groups++
			return nil
		},
	)
	if err != nil {
		v.fatal(err)
		return
	}

	if n := f.StackSize(); n != 0 {
		v.error("%d group(s) still open at end of file", n)
	}
	if off := f.FileOffset(); off != f.FileSize() {
		v.error("stopped at offset 0x%x of 0x%x", off, f.FileSize())
	}
	if declared := f.FileHeader().NumRecords; declared != 0 && int(declared) != v.records+v.groups {
		v.warning("header declares %d records and groups, found %d", declared, v.records+v.groups)
	}
}

// byRecord buckets findings by record type; findings without one go
// under "file"
func byRecord(fs []finding) ([]string, map[string][]finding) {
	buckets := map[string][]finding{}
	for _, f := range fs {
		key := f.record
		if key == "" {
			key = "file"
		}
		buckets[key] = append(buckets[key], f)
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, buckets
}

func (v *validator) printResults(w io.Writer) {
	fmt.Fprintf(w, "%s: %d records in %d groups\n", v.file, v.records, v.groups)

	for _, section := range []struct {
		title string
		items []finding
	}{{"error", v.errors}, {"warning", v.warnings}} {
		keys, buckets := byRecord(section.items)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s %s (%d)\n", k, section.title, len(buckets[k]))
			for _, f := range buckets[k] {
				fmt.Fprintf(w, "    %s\n", f)
			}
		}
	}

	switch {
	case len(v.errors) > 0:
		fmt.Fprintf(w, "FAIL: %d error(s), %d warning(s)\n", len(v.errors), len(v.warnings))
	case len(v.warnings) > 0 && v.strict:
		fmt.Fprintf(w, "FAIL: %d warning(s) in strict mode\n", len(v.warnings))
	case len(v.warnings) > 0:
		fmt.Fprintf(w, "OK: %d warning(s)\n", len(v.warnings))
	default:
		fmt.Fprintln(w, "OK")
	}
}

// order command
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Resolve a load order",
	Long: `Open every content file of a load order and print its mod index
and the load order indices of its masters.

The load order comes from an openmw.cfg style file (data=, content=,
encoding= lines) or from a plugins.txt list searched in --data.`,
	Args: cobra.NoArgs,
	RunE: runOrder,
}

func init() {
	orderCmd.Flags().String("config", "", "openmw.cfg style configuration file")
	orderCmd.Flags().String("plugins", "", "plugins.txt list of content files")
}

func runOrder(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	pluginsPath, _ := cmd.Flags().GetString("plugins")

	if (configPath == "") == (pluginsPath == "") {
		return fmt.Errorf("exactly one of --config and --plugins is required")
	}

	lo, err := readLoadOrder(configPath, pluginsPath)
	if err != nil {
		return err
	}

	src, err := newSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	if src.data != "" {
		lo.Data = append(lo.Data, src.data)
	}
	// string tables live next to each content file
	opts := src.opts
	opts.FS = nil

	l, err := esmkit.OpenLoadOrder(lo, src.fs(), opts)
	if err != nil {
		return err
	}
	defer l.Close()

	for _, f := range l.Files {
		fmt.Printf("[%02x] %s", f.ModIndex(), f.Name())
		masters := f.FileHeader().Masters
		if len(masters) > 0 {
			parents := f.ModIndices().Parents
			refs := make([]string, len(masters))
			for i, m := range masters {
				refs[i] = fmt.Sprintf("%s=%02x", m.Name, parents[i])
			}
			fmt.Printf("  masters: %s", strings.Join(refs, ", "))
		}
		fmt.Println()
	}
	return nil
}

func readLoadOrder(configPath, pluginsPath string) (*model.LoadOrder, error) {
	path := configPath
	if path == "" {
		path = pluginsPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open load order: %w", err)
	}
	defer f.Close()

	reader := text.NewReader(f)
	if configPath != "" {
		lo, err := reader.ReadConfig()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return lo, nil
	}

	content, err := reader.ReadPluginList()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	lo := model.NewLoadOrder()
	lo.Content = content
	return lo, nil
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("esmkit version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}
