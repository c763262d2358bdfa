package installer

import (
	"os"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// resolveJar locates the client jar of the root version, scheduling its
// download when the metadata provides one.
func (i *Installer) resolveJar(hierarchy minecraft.Hierarchy, flat *minecraft.VersionDescriptor, dl *downloadmgr.DownloadManager) (string, error) {
	rootID := hierarchy.Root().ID
	jarPath := i.Context.VersionJar(rootID)

	if client := flat.Downloads.Client; client != nil && client.URL != "" {
		dl.AddMissing(downloadmgr.Entry{
			URL:  client.URL,
			Dst:  jarPath,
			Size: client.Size,
			Sha1: client.Sha1,
			Name: rootID + ".jar",
		}, i.StrictChecks)
		i.Handler.Handle(JarFoundEvent{Version: rootID})
		return jarPath, nil
	}

	// No client download, the jar may have been installed by other means.
	if info, err := os.Stat(jarPath); err == nil && info.Mode().IsRegular() {
		i.Handler.Handle(JarFoundEvent{Version: rootID})
		return jarPath, nil
	}

	return "", &JarNotFoundError{Version: rootID}
}
