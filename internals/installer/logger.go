package installer

import (
	"path/filepath"
	"strings"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// loggerInfo is the log4j configuration a version asks for, the argument
// still contains the ${path} placeholder.
type loggerInfo struct {
	argument string
	path     string
	version  string
}

// resolveLogger schedules the log4j configuration file of the version,
// when it declares one. Versions without a logging section return nil.
func (i *Installer) resolveLogger(flat *minecraft.VersionDescriptor, dl *downloadmgr.DownloadManager) (*loggerInfo, error) {
	if flat.Logging == nil || flat.Logging.Client == nil {
		return nil, nil
	}

	client := flat.Logging.Client
	if client.Argument == "" {
		return nil, &MalformedDescriptorError{Version: flat.ID, Reason: "logging client argument missing"}
	}
	if client.File.ID == "" {
		return nil, &MalformedDescriptorError{Version: flat.ID, Reason: "logging client file id missing"}
	}

	info := &loggerInfo{
		argument: client.Argument,
		path:     filepath.Join(i.Context.AssetsDir(), "log_configs", client.File.ID),
		version:  strings.TrimSuffix(client.File.ID, ".xml"),
	}

	dl.AddMissing(downloadmgr.Entry{
		URL:  client.File.URL,
		Dst:  info.path,
		Size: client.File.Size,
		Sha1: client.File.Sha1,
		Name: client.File.ID,
	}, i.StrictChecks)

	i.Handler.Handle(LoggerFoundEvent{Version: info.version})
	return info, nil
}
