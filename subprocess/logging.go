// Package subprocess streams a running exec.Cmd's stdout/stderr into our
// structured logger, so long-running external tools (the yt-dlp download in
// package ingest) surface their output the same way the rest of the
// pipeline logs.
package subprocess

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"

	"github.com/clipmind/video-report/log"
)

func streamOutput(stream string, src io.Reader) {
	s := bufio.NewReader(src)
	for {
		line, err := s.ReadSlice('\n')
		if err == io.EOF && len(line) == 0 {
			return
		}
		if len(line) > 0 {
			log.LogNoRequestID("subprocess output", "stream", stream, "line", string(line))
		}
		if err != nil {
			return
		}
	}
}

func LogStdout(cmd *exec.Cmd) error {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	go streamOutput("stdout", stdoutPipe)
	return nil
}

func LogStderr(cmd *exec.Cmd) error {
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}
	go streamOutput("stderr", stderrPipe)
	return nil
}

// LogOutputs starts goroutines that stream cmd's stdout & stderr to the
// logger. Call before cmd.Start().
func LogOutputs(cmd *exec.Cmd) error {
	if err := LogStderr(cmd); err != nil {
		return err
	}
	return LogStdout(cmd)
}
