package dex

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEncodePathInterleavesFees(t *testing.T) {
	path, err := EncodePath([]common.Address{testWHBAR, testUSDC}, []uint32{FeeMedium})
	require.NoError(t, err)
	require.Len(t, path, 43)
	require.Equal(t, testWHBAR.Bytes(), path[:20])
	require.Equal(t, []byte{0x00, 0x0b, 0xb8}, path[20:23])
	require.Equal(t, testUSDC.Bytes(), path[23:])

	multi, err := EncodePath([]common.Address{testWHBAR, testUSDC, testSAUCE}, []uint32{FeeLow, FeeHigh})
	require.NoError(t, err)
	require.Len(t, multi, 66)
	require.Equal(t, []byte{0x00, 0x27, 0x10}, multi[43:46])
}

func TestEncodePathRejectsMismatch(t *testing.T) {
	_, err := EncodePath([]common.Address{testWHBAR, testUSDC}, nil)
	require.True(t, errors.Is(err, ErrInvalidParameter))

	_, err = EncodePath([]common.Address{testWHBAR}, nil)
	require.True(t, errors.Is(err, ErrInvalidParameter))

	_, err = EncodePath([]common.Address{testWHBAR, testUSDC}, []uint32{1 << 24})
	require.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestValidateFeeTier(t *testing.T) {
	for _, fee := range FeeTiers {
		require.NoError(t, ValidateFeeTier(fee))
	}
	require.True(t, errors.Is(ValidateFeeTier(0), ErrInvalidParameter))
	require.True(t, errors.Is(ValidateFeeTier(2500), ErrInvalidParameter))
}
