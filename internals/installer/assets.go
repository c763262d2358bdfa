package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// assetsInfo carries the resolved assets between the download batch and the
// finalize step.
type assetsInfo struct {
	indexVersion string
	// virtualDir is set when the index is virtual, resourcesDir when it
	// maps into the work directory. Both can be set at once.
	virtualDir   string
	resourcesDir string
	// objects maps the logical asset path to its object file
	objects map[string]string
}

// resolveAssets reads the assets index of the version, fetching it when
// missing, and schedules every missing object.
func (i *Installer) resolveAssets(ctx context.Context, flat *minecraft.VersionDescriptor, dl *downloadmgr.DownloadManager) (*assetsInfo, error) {
	indexRef := flat.AssetIndex
	indexVersion := flat.Assets
	if indexVersion == "" && indexRef != nil {
		indexVersion = indexRef.ID
	}
	if indexVersion == "" {
		// Custom versions may use their own internal assets.
		return &assetsInfo{}, nil
	}

	i.Handler.Handle(AssetsResolvingEvent{IndexVersion: indexVersion})

	indexFile := filepath.Join(i.Context.AssetsDir(), "indexes", indexVersion+".json")
	data, err := os.ReadFile(indexFile)
	if err != nil {
		if indexRef == nil || indexRef.URL == "" {
			return nil, &AssetsNotFoundError{IndexVersion: indexVersion}
		}
		if err := fetchFile(ctx, i.client(), indexRef.URL, indexFile); err != nil {
			return nil, err
		}
		if data, err = os.ReadFile(indexFile); err != nil {
			return nil, err
		}
	}

	var index minecraft.AssetIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("assets index %s: %w", indexVersion, err)
	}

	info := &assetsInfo{
		indexVersion: indexVersion,
		objects:      make(map[string]string, len(index.Objects)),
	}
	if index.Virtual {
		info.virtualDir = filepath.Join(i.Context.AssetsDir(), "virtual", indexVersion)
	}
	if index.MapToResources {
		info.resourcesDir = filepath.Join(i.Context.WorkDir, "resources")
	}

	objectsDir := filepath.Join(i.Context.AssetsDir(), "objects")
	for name, object := range index.Objects {
		file := filepath.Join(objectsDir, filepath.FromSlash(object.UnixPath()))
		info.objects[name] = file
		dl.AddMissing(downloadmgr.Entry{
			URL:  object.DownloadURL(),
			Dst:  file,
			Size: object.Size,
			Sha1: object.Hash,
			Name: name,
		}, i.StrictChecks)
	}

	i.Handler.Handle(AssetsResolvedEvent{IndexVersion: indexVersion, Count: len(info.objects)})
	return info, nil
}

// finalize mirrors the objects into the virtual and resources trees used
// by legacy versions. Objects already mirrored with the right size are
// left alone.
func (a *assetsInfo) finalize() error {
	for _, root := range []string{a.resourcesDir, a.virtualDir} {
		if root == "" {
			continue
		}
		for name, file := range a.objects {
			dst := filepath.Join(root, filepath.FromSlash(name))
			if sameSize(file, dst) {
				continue
			}
			if err := copyFile(file, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// sameSize tells whether dst exists with the same size as src.
func sameSize(src string, dst string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return srcInfo.Size() == dstInfo.Size()
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
