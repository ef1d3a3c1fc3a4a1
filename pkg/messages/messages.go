// Package messages centralizes all log and reply message literals so they can
// be reused across the code-base and kept consistent. Constants are grouped by
// functional area (Downloader, Pipeline, Registry, Store, Dispatcher).
package messages

// Log message constants.
const (
	// Downloader
	MsgStartingFileDownload = "starting file download"
	MsgDownloadProgress     = "download progress"
	MsgDownloadComplete     = "download complete"

	// Pipeline
	MsgAcquisitionStarted  = "acquiring asset"
	MsgAcquisitionComplete = "asset acquired"
	MsgTranscodingLossless = "lossless raster detected, transcoding to jpeg"
	MsgCompressingFile     = "compressing file"
	MsgCompressionSkipped  = "compression skipped for exempt media type"
	MsgCompressionDeclined = "compressor declined, keeping uncompressed file"
	MsgDeletingOriginal    = "deleting uncompressed file"
	MsgContentTypeMismatch = "downloaded content type does not match url extension"
	MsgScratchCleanupError = "failed to remove scratch file"
	MsgOversizeAsset       = "unable to compress asset under the size limit, the remote link will be served instead"

	// Registry
	MsgRegistryLoaded       = "registry loaded"
	MsgRegistryRepaired     = "registry document was inconsistent and has been repaired"
	MsgAssetAdded           = "asset added to registry"
	MsgAssetRemoved         = "asset removed from registry"
	MsgLocalFileMissing     = "local file already absent, continuing removal"
	MsgPersistFailedRevert  = "failed to persist registry, reverting in-memory change"
	MsgRegistryDocumentSave = "registry saved"

	// Exec
	MsgExecutingCommand = "executing"

	// Dispatcher / worker
	MsgJobFailed      = "command failed"
	MsgJobPanicked    = "command panicked"
	MsgUnrecognized   = "unrecognized command"
	MsgQueueStopped   = "job queue stopped"
	MsgSessionSummary = "listen session finished"
)

// Reply literals shown to the chat user.
const (
	ReplyMissingParameters = "Oops! You have not included all of the required parameters."
	ReplyDuplicateCommand  = "Oops! That command is already taken. Consider using a different command - or remove the existing command first."
	ReplyCommandTooLong    = "Oops, your command is too long!"
	ReplyInvalidIndex      = "Oops! That index is not a number."
	ReplyMissingIndex      = "Oops! Looks like you forgot to tell me which image to remove."
	ReplyIndexOutOfRange   = "Oops! There is no image at that index."
	ReplyUnknownCommand    = "I'm sorry, I don't know that command."
	ReplyFetchFailed       = "Oops! I couldn't download that file."
	ReplyStorageFailed     = "Oops! Something went wrong while saving that file."
	ReplyGenericFailure    = "Oops! Something went wrong."
	ReplyEmptyList         = "I'm sorry, there are no items on this list."
	ReplyOversizeAdvisory  = "That file is still %s after compression, so I'll send the original link instead of uploading it."
	ReplyAdded             = "Image with command `%s` has been added to the list!"
	ReplyRemoved           = "Image with command `%s` was removed from the list."
)
