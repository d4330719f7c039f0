package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/docker/docker/api/types"

	"sysyjudge/internal/workspace"
)

const (
	slotMode    = 0o644
	shippedMode = 0o755
)

// bundle is the tar stream copied into a tool's workdir before it starts:
// the staged workspace slots plus any host files the tool needs.
type bundle struct {
	buf     bytes.Buffer
	tw      *tar.Writer
	entries int
}

func newBundle() *bundle {
	b := &bundle{}
	b.tw = tar.NewWriter(&b.buf)
	return b
}

// addWorkspace adds every slot currently present in ws under its slot name.
func (b *bundle) addWorkspace(ws workspace.Workspace) error {
	slots, err := ws.Files()
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if err := b.addHostFile(string(slot), ws.Path(slot), slotMode); err != nil {
			return err
		}
	}
	return nil
}

// addShipped adds host files by base name, executable, next to the slots.
func (b *bundle) addShipped(hostPaths []string) error {
	for _, hostPath := range hostPaths {
		if err := b.addHostFile(filepath.Base(hostPath), hostPath, shippedMode); err != nil {
			return fmt.Errorf("ship %s: %w", hostPath, err)
		}
	}
	return nil
}

func (b *bundle) addHostFile(name, hostPath string, mode int64) error {
	file, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", hostPath)
	}

	if err := b.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     mode,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	if _, err := io.Copy(b.tw, file); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	b.entries++
	return nil
}

// reader finishes the archive. It returns nil when nothing was added.
func (b *bundle) reader() (io.Reader, error) {
	if err := b.tw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if b.entries == 0 {
		return nil, nil
	}
	return bytes.NewReader(b.buf.Bytes()), nil
}

func (c *containerEngine) copyIn(ctx context.Context, containerID, workdir string, archive io.Reader) error {
	if archive == nil {
		return nil
	}
	return c.cli.CopyToContainer(ctx, containerID, workdir, archive, types.CopyToContainerOptions{AllowOverwriteDirWithFile: true})
}

// collectOutputs copies workdir out of the container in one archive and
// keeps the direct children named in want. Files the tool did not write are
// simply absent from the result.
func (c *containerEngine) collectOutputs(ctx context.Context, containerID, workdir string, want []string) (map[string][]byte, error) {
	if len(want) == 0 {
		return nil, nil
	}

	reader, _, err := c.cli.CopyFromContainer(ctx, containerID, workdir)
	if err != nil {
		return nil, fmt.Errorf("copy %s from container: %w", workdir, err)
	}
	defer reader.Close()

	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}
	root := path.Base(path.Clean(workdir))

	collected := make(map[string][]byte, len(want))
	tr := tar.NewReader(reader)
	for len(collected) < len(wanted) {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s archive: %w", workdir, err)
		}

		name := path.Clean(header.Name)
		if header.Typeflag != tar.TypeReg || path.Dir(name) != root || !wanted[path.Base(name)] {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		collected[path.Base(name)] = data
	}
	return collected, nil
}
