// Package mapper 在本地笔记与加密线上表示之间转换
// Package mapper converts between the local note and its encrypted wire
// representation. Content travels as one encrypted JSON envelope.
package mapper

import (
	"encoding/base64"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// contentEnvelope 加密前的内容信封
type contentEnvelope struct {
	Body  string       `json:"body"`
	Items []store.Item `json:"items,omitempty"`
	Spans []store.Span `json:"spans,omitempty"`
}

// Mapper 线上格式转换器
type Mapper struct {
	logger *zap.Logger
}

func New(log *zap.Logger) *Mapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mapper{logger: log}
}

// ToWire 加密笔记内容并生成传输对象
// 笔记尚无 SyncID 时分配一个新的 uuid,调用方负责持久化
func (m *Mapper) ToWire(note *store.Note, key []byte) (*dto.NoteDto, error) {
	if note.SyncID == "" {
		note.SyncID = uuid.NewString()
	}

	payload, err := sonic.Marshal(contentEnvelope{
		Body:  note.Body,
		Items: note.Items,
		Spans: note.Spans,
	})
	if err != nil {
		return nil, errors.Wrap(err, "mapper: marshal content envelope")
	}

	enc, err := crypto.Encrypt(payload, key)
	if err != nil {
		return nil, errors.Wrap(err, "mapper: encrypt content")
	}

	return &dto.NoteDto{
		SyncID:                note.SyncID,
		OwnerUserID:           note.OwnerUserID,
		Title:                 note.Title,
		Content:               base64.StdEncoding.EncodeToString(enc.Data),
		EncryptionIV:          base64.StdEncoding.EncodeToString(enc.IV),
		Type:                  note.Type,
		IsArchived:            note.Archived,
		IsPinned:              note.Pinned,
		IsShared:              note.IsShared,
		Labels:                append([]string(nil), note.Labels...),
		CreatedTimestamp:      note.CreatedTimestamp,
		LastModifiedTimestamp: note.ModifiedTimestamp,
		LastSyncedTimestamp:   note.LastSyncedTimestamp,
		SharedAccesses:        append([]dto.SharedAccessDto(nil), note.SharedAccesses...),
	}, nil
}

// FromWire 解密传输对象并合并到本地笔记
// existing 不为空时以其为基础,保留线上格式不携带的本地字段
// 解密或解析失败时只更新元数据,明文内容保持不变,不视为硬错误
func (m *Mapper) FromWire(d *dto.NoteDto, key []byte, existing *store.Note) *store.Note {
	var note *store.Note
	if existing != nil {
		note = existing.Clone()
	} else {
		note = &store.Note{SyncID: d.SyncID}
	}

	note.SyncID = d.SyncID
	note.OwnerUserID = d.OwnerUserID
	note.Title = d.Title
	note.Type = d.Type
	note.Archived = d.IsArchived
	note.Pinned = d.IsPinned
	note.IsShared = d.IsShared
	note.Labels = append([]string(nil), d.Labels...)
	note.CreatedTimestamp = d.CreatedTimestamp
	note.ModifiedTimestamp = d.LastModifiedTimestamp
	note.LastSyncedTimestamp = d.LastSyncedTimestamp
	note.SharedAccesses = append([]dto.SharedAccessDto(nil), d.SharedAccesses...)

	env, err := m.decryptEnvelope(d, key)
	if err != nil {
		// 内容留在上一次成功解密的状态,避免丢笔记
		m.logger.Warn("decrypt note content failed, keeping local content",
			zap.String(logger.FieldSyncID, d.SyncID),
			zap.Error(err))
		return note
	}

	note.Body = env.Body
	note.Items = env.Items
	note.Spans = env.Spans
	return note
}

// DecryptContent 只解密内容信封,供冲突展示使用
func (m *Mapper) DecryptContent(d *dto.NoteDto, key []byte) (string, error) {
	env, err := m.decryptEnvelope(d, key)
	if err != nil {
		return "", err
	}
	return env.Body, nil
}

func (m *Mapper) decryptEnvelope(d *dto.NoteDto, key []byte) (*contentEnvelope, error) {
	data, err := base64.StdEncoding.DecodeString(d.Content)
	if err != nil {
		return nil, errors.Wrap(err, "mapper: decode content")
	}
	iv, err := base64.StdEncoding.DecodeString(d.EncryptionIV)
	if err != nil {
		return nil, errors.Wrap(err, "mapper: decode iv")
	}

	plain, err := crypto.Decrypt(crypto.EncryptedData{IV: iv, Data: data}, key)
	if err != nil {
		return nil, err
	}

	var env contentEnvelope
	if err := sonic.Unmarshal(plain, &env); err != nil {
		return nil, errors.Wrap(err, "mapper: parse content envelope")
	}
	return &env, nil
}
