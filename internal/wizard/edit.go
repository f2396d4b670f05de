package wizard

import (
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/source"
)

// EditStorage checks a user edit of a storage row against the capabilities of its
// source and returns the mutation that applies it. A refused edit returns a
// STORAGE_POLICY_VIOLATION error and leaves s as it was.
func EditStorage(s Snapshot, st Storage) (*UpdateStorage, error) {
	if st.ID == 0 && st.Type == "" {
		st.Type = StorageTypeUIInput
	}

	next := s.CombinedDisk(st)
	nextSrc := next.Source()
	params := map[string]interface{}{"storage_id": st.ID, "source": nextSrc.Key()}

	if st.ID != 0 {
		prev, ok := s.Storage(st.ID)
		if !ok {
			return nil, apperrors.ErrStorageNotFoundf(st.ID)
		}
		cur := s.CombinedDisk(prev)
		curSrc := cur.Source()
		if !curSrc.IsEditingSupported() {
			return nil, apperrors.ErrStoragePolicyf("storage with an unsupported source is read-only", params)
		}
		if curSrc == nextSrc && sizeChanged(cur, next) {
			size, _ := cur.Size()
			if !curSrc.IsSizeEditingSupported(size) {
				return nil, apperrors.ErrStoragePolicyf("size of "+curSrc.Label()+" storage cannot be changed", params)
			}
		}
	}

	if nextSrc == source.Other {
		return nil, apperrors.ErrStoragePolicyf("storage source is not supported", params)
	}
	if !nextSrc.CanChangeTo(next.Type()) {
		params["disk_type"] = string(next.Type())
		return nil, apperrors.ErrStoragePolicyf(nextSrc.Label()+" cannot back a "+string(next.Type()), params)
	}
	return &UpdateStorage{Storage: st}, nil
}

func sizeChanged(a, b combined.Disk) bool {
	as, ar := a.Size()
	bs, br := b.Size()
	if ar != combined.Resolved || br != combined.Resolved {
		return false
	}
	return as.Bytes() != bs.Bytes()
}
