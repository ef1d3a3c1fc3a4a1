package errors

import "github.com/kdeps/mediacmd/pkg/messages"

// UserMessage renders err as the text shown to the chat user.
func UserMessage(err error) string {
	ae, ok := AsAssetError(err)
	if !ok {
		return messages.ReplyGenericFailure
	}

	switch ae.Code {
	case ErrDuplicateCommand:
		return messages.ReplyDuplicateCommand
	case ErrCommandTooLong:
		return messages.ReplyCommandTooLong
	case ErrInvalidIndex:
		return messages.ReplyInvalidIndex
	case ErrValidation:
		return messages.ReplyMissingParameters
	case ErrNotFound:
		return messages.ReplyIndexOutOfRange
	case ErrUnknownCommand:
		return messages.ReplyUnknownCommand
	case ErrAcquisition:
		return messages.ReplyFetchFailed
	case ErrStorage:
		return messages.ReplyStorageFailed
	default:
		return messages.ReplyGenericFailure
	}
}
