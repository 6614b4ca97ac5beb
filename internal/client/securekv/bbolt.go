package securekv

import (
	"crypto/rand"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	secretsBucket = []byte("secrets")
	keysBucket    = []byte("keys")
)

// FileStore bbolt 文件实现
// 机密值用设备密钥加密后落盘，密钥从机器 ID 派生
type FileStore struct {
	db        *bolt.DB
	deviceKey []byte
}

var _ SecureStore = (*FileStore)(nil)

// OpenFileStore 打开（或创建）存储文件
func OpenFileStore(path string) (*FileStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "securekv: open store")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(secretsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(keysBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "securekv: init buckets")
	}

	s := &FileStore{db: db}
	salt, err := s.deviceSalt()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.deviceKey = crypto.DeriveKey(util.GetMachineID(), salt)
	return s, nil
}

// Close 关闭底层数据库
func (s *FileStore) Close() error {
	return s.db.Close()
}

// deviceSalt 返回存储级盐，首次打开时生成
func (s *FileStore) deviceSalt() ([]byte, error) {
	var salt []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(keysBucket)
		if v := b.Get([]byte("_salt")); v != nil {
			salt = append([]byte(nil), v...)
			return nil
		}
		fresh, err := crypto.GenerateSalt()
		if err != nil {
			return err
		}
		salt = fresh
		return b.Put([]byte("_salt"), fresh)
	})
	if err != nil {
		return nil, errors.Wrap(err, "securekv: device salt")
	}
	return salt, nil
}

func (s *FileStore) GetOrCreateKey(alias string) ([]byte, error) {
	var key []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(keysBucket)
		if v := b.Get([]byte(alias)); v != nil {
			enc, err := crypto.DecodeEncrypted(string(v))
			if err != nil {
				return err
			}
			plain, err := crypto.Decrypt(enc, s.deviceKey)
			if err != nil {
				return err
			}
			key = plain
			return nil
		}

		fresh := make([]byte, crypto.KeyLength)
		if _, err := rand.Read(fresh); err != nil {
			return err
		}
		enc, err := crypto.Encrypt(fresh, s.deviceKey)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(alias), []byte(enc.Encode())); err != nil {
			return err
		}
		key = fresh
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "securekv: get or create key")
	}
	return key, nil
}

func (s *FileStore) GetSecret(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(secretsBucket).Get([]byte(key))
		if v == nil {
			return ErrSecretNotFound
		}
		enc, err := crypto.DecodeEncrypted(string(v))
		if err != nil {
			return err
		}
		plain, err := crypto.Decrypt(enc, s.deviceKey)
		if err != nil {
			return err
		}
		value = string(plain)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		return "", errors.Wrap(err, "securekv: get secret")
	}
	return value, nil
}

func (s *FileStore) PutSecret(key, value string) error {
	enc, err := crypto.Encrypt([]byte(value), s.deviceKey)
	if err != nil {
		return errors.Wrap(err, "securekv: encrypt secret")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Put([]byte(key), []byte(enc.Encode()))
	})
	return errors.Wrap(err, "securekv: put secret")
}

func (s *FileStore) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Delete([]byte(key))
	})
	return errors.Wrap(err, "securekv: delete secret")
}
