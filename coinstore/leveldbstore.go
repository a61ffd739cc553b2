package coinstore

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/chia-network/mempool-core/coins"
)

// coinRecordPrefix namespaces coin record keys within the shared database,
// the way the teacher's on-disk store namespaces every bucket by prefix.
var coinRecordPrefix = []byte("c")

// lineagePrefix namespaces singleton unspent-lineage pointers, keyed by
// puzzle hash.
var lineagePrefix = []byte("l")

// LevelDBStore is a Store backed by a LevelDB database, for embedding
// processes that keep their UTXO set on disk rather than fully in memory.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (creating if absent) a LevelDB-backed Store at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening coin store at %s", path)
	}
	return &LevelDBStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func coinRecordKey(coinID coins.ID) []byte {
	key := make([]byte, 0, len(coinRecordPrefix)+len(coinID))
	key = append(key, coinRecordPrefix...)
	key = append(key, coinID[:]...)
	return key
}

func lineageKey(puzzleHash coins.ID) []byte {
	key := make([]byte, 0, len(lineagePrefix)+len(puzzleHash))
	key = append(key, lineagePrefix...)
	key = append(key, puzzleHash[:]...)
	return key
}

// PutCoinRecord writes or overwrites a coin's record.
func (s *LevelDBStore) PutCoinRecord(r coins.Record) error {
	return s.db.Put(coinRecordKey(r.Coin.ID()), encodeCoinRecord(r), nil)
}

// PutUnspentLineageInfo records the current unspent coin in a singleton's
// lineage under its puzzle hash.
func (s *LevelDBStore) PutUnspentLineageInfo(puzzleHash coins.ID, info UnspentLineageInfo) error {
	return s.db.Put(lineageKey(puzzleHash), encodeLineageInfo(info), nil)
}

// GetCoinRecord implements Store.
func (s *LevelDBStore) GetCoinRecord(_ context.Context, coinID coins.ID) (*coins.Record, error) {
	data, err := s.db.Get(coinRecordKey(coinID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading coin record %s", hex.EncodeToString(coinID[:]))
	}
	r, err := decodeCoinRecord(data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetUnspentLineageInfoForPuzzleHash implements Store.
func (s *LevelDBStore) GetUnspentLineageInfoForPuzzleHash(_ context.Context, puzzleHash coins.ID) (*UnspentLineageInfo, error) {
	data, err := s.db.Get(lineageKey(puzzleHash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading lineage info %s", hex.EncodeToString(puzzleHash[:]))
	}
	info, err := decodeLineageInfo(data)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// IterateCoinRecords calls fn for every coin record in the store, in key
// order, until fn returns false or every record has been visited.
func (s *LevelDBStore) IterateCoinRecords(fn func(coins.Record) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix(coinRecordPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		r, err := decodeCoinRecord(iter.Value())
		if err != nil {
			return err
		}
		if !fn(r) {
			break
		}
	}
	return iter.Error()
}

func encodeCoinRecord(r coins.Record) []byte {
	buf := make([]byte, 0, 32+32+8+4+4+1+8)
	buf = append(buf, r.Coin.ParentID[:]...)
	buf = append(buf, r.Coin.PuzzleHash[:]...)
	buf = appendUint64(buf, r.Coin.Amount)
	buf = appendUint32(buf, r.ConfirmedHeight)
	buf = appendUint32(buf, r.SpentHeight)
	coinbase := byte(0)
	if r.IsCoinbase {
		coinbase = 1
	}
	buf = append(buf, coinbase)
	buf = appendUint64(buf, r.Timestamp)
	return buf
}

func decodeCoinRecord(data []byte) (coins.Record, error) {
	const wantLen = 32 + 32 + 8 + 4 + 4 + 1 + 8
	if len(data) != wantLen {
		return coins.Record{}, errors.Errorf("corrupt coin record: got %d bytes, want %d", len(data), wantLen)
	}
	var r coins.Record
	copy(r.Coin.ParentID[:], data[0:32])
	copy(r.Coin.PuzzleHash[:], data[32:64])
	r.Coin.Amount = binary.BigEndian.Uint64(data[64:72])
	r.ConfirmedHeight = binary.BigEndian.Uint32(data[72:76])
	r.SpentHeight = binary.BigEndian.Uint32(data[76:80])
	r.IsCoinbase = data[80] != 0
	r.Timestamp = binary.BigEndian.Uint64(data[81:89])
	return r, nil
}

func encodeLineageInfo(info UnspentLineageInfo) []byte {
	buf := make([]byte, 0, 32+32+32)
	buf = append(buf, info.CoinID[:]...)
	buf = append(buf, info.ParentID[:]...)
	buf = append(buf, info.ParentParentID[:]...)
	return buf
}

func decodeLineageInfo(data []byte) (UnspentLineageInfo, error) {
	const wantLen = 32 + 32 + 32
	if len(data) != wantLen {
		return UnspentLineageInfo{}, errors.Errorf("corrupt lineage info: got %d bytes, want %d", len(data), wantLen)
	}
	var info UnspentLineageInfo
	copy(info.CoinID[:], data[0:32])
	copy(info.ParentID[:], data[32:64])
	copy(info.ParentParentID[:], data[64:96])
	return info, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
