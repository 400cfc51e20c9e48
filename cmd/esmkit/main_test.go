package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dyuri/esmkit/internal/binary"
	"github.com/dyuri/esmkit/internal/model"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5 MiB"},
		{238 * 1024 * 1024 * 1024 / 10, "23.8 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestValidatorReport(t *testing.T) {
	v := newValidator("Test.esm", false)
	v.records, v.groups = 3, 1

	logger, _ := test.NewNullLogger()
	logger.AddHook(v)
	logger.WithFields(logrus.Fields{"record": "STAT", "offset": "0x40"}).Warn("unknown subrecord")
	logger.WithFields(logrus.Fields{"record": "STAT", "offset": "0x80"}).Warn("unknown subrecord")
	logger.WithField("group", "Record Type: CELL").Warn("group read past its end, seeking back")
	logger.Info("not collected")

	v.fatal(&binary.DecodeError{Record: model.RecordType(model.FourCC("NPC_")), Offset: 0x100, Err: binary.ErrMalformedSize})
	v.fatal(errors.New("short read"))

	var out bytes.Buffer
	v.printResults(&out)
	got := out.String()

	for _, want := range []string{
		"Test.esm: 3 records in 1 groups\n",
		"  NPC_ error (1)\n    0x100: malformed size\n",
		"  file error (1)\n    short read\n",
		"  STAT warning (2)\n    0x40: unknown subrecord\n    0x80: unknown subrecord\n",
		"  file warning (1)\n    group read past its end, seeking back (Record Type: CELL)\n",
		"FAIL: 2 error(s), 3 warning(s)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report lacks %q:\n%s", want, got)
		}
	}
}

func TestValidatorReportStrict(t *testing.T) {
	tests := []struct {
		strict bool
		want   string
	}{
		{false, "OK: 1 warning(s)\n"},
		{true, "FAIL: 1 warning(s) in strict mode\n"},
	}

	for _, tt := range tests {
		v := newValidator("Test.esm", tt.strict)
		v.warning("header declares %d records and groups, found %d", 5, 4)

		var out bytes.Buffer
		v.printResults(&out)
		if !strings.HasSuffix(out.String(), tt.want) {
			t.Errorf("strict=%v report:\n%s\nwant suffix %q", tt.strict, out.String(), tt.want)
		}
	}

	var out bytes.Buffer
	newValidator("Test.esm", true).printResults(&out)
	if !strings.HasSuffix(out.String(), "OK\n") {
		t.Errorf("clean report:\n%s", out.String())
	}
}
