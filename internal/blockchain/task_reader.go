package blockchain

import (
	"context"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"infofix-oracle/internal/apperrors"
)

// taskManagerABI covers the TaskManager read surface the oracle needs.
const taskManagerABI = `[{"type":"function","name":"tasks","stateMutability":"view","inputs":[{"type":"uint256","name":"taskId"}],"outputs":[{"type":"address","name":"creator"},{"type":"string","name":"url"},{"type":"uint8","name":"actionMask"},{"type":"uint96","name":"rewardPerFollow"},{"type":"uint96","name":"rewardPerLike"},{"type":"uint96","name":"rewardPerRecast"},{"type":"uint32","name":"quotaFollow"},{"type":"uint32","name":"quotaLike"},{"type":"uint32","name":"quotaRecast"},{"type":"uint32","name":"spentFollow"},{"type":"uint32","name":"spentLike"},{"type":"uint32","name":"spentRecast"},{"type":"address","name":"token"},{"type":"uint256","name":"budget"},{"type":"uint64","name":"endTime"},{"type":"bool","name":"paused"}]}]`

// TaskInfo is the on-chain task snapshot the oracle reads before pricing
// and authorizing an approval. The oracle never mutates it.
type TaskInfo struct {
	TaskID          uint64
	Creator         common.Address
	RewardPerFollow *big.Int
	RewardPerLike   *big.Int
	RewardPerRecast *big.Int
	Token           common.Address
	Budget          *big.Int
	EndTime         uint64
	Paused          bool
}

// RewardFor returns the per-action reward rate for the given action code.
func (t *TaskInfo) RewardFor(action uint8) *big.Int {
	switch action {
	case 0:
		return t.RewardPerFollow
	case 1:
		return t.RewardPerLike
	default:
		return t.RewardPerRecast
	}
}

// ContractCaller is the subset of ethclient.Client the reader depends on.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type cachedTask struct {
	info      *TaskInfo
	fetchedAt time.Time
}

// TaskReader reads task configuration from the TaskManager contract with a
// bounded per-call timeout and a small TTL cache. Reward rates and the
// creator can change on-chain, so cache entries expire.
type TaskReader struct {
	caller      ContractCaller
	contract    common.Address
	abi         abi.ABI
	callTimeout time.Duration
	cacheTTL    time.Duration

	mu    sync.Mutex
	cache map[uint64]cachedTask
}

// NewTaskReader creates a reader against the given TaskManager deployment.
func NewTaskReader(caller ContractCaller, contractAddress string, callTimeout, cacheTTL time.Duration) *TaskReader {
	parsed, err := abi.JSON(strings.NewReader(taskManagerABI))
	if err != nil {
		// The ABI is a compile-time constant; failing to parse it is a bug.
		log.Fatalf("Failed to parse TaskManager ABI: %v", err)
	}

	return &TaskReader{
		caller:      caller,
		contract:    common.HexToAddress(contractAddress),
		abi:         parsed,
		callTimeout: callTimeout,
		cacheTTL:    cacheTTL,
		cache:       make(map[uint64]cachedTask),
	}
}

// GetTask returns the task registry entry for taskID.
func (r *TaskReader) GetTask(ctx context.Context, taskID uint64) (*TaskInfo, error) {
	if r.cacheTTL > 0 {
		r.mu.Lock()
		entry, ok := r.cache[taskID]
		r.mu.Unlock()
		if ok && time.Since(entry.fetchedAt) < r.cacheTTL {
			return entry.info, nil
		}
	}

	input, err := r.abi.Pack("tasks", new(big.Int).SetUint64(taskID))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindChainUnavailable, err, "failed to encode task query")
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	output, err := r.caller.CallContract(callCtx, ethereum.CallMsg{
		To:   &r.contract,
		Data: input,
	}, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindChainUnavailable, err, "task registry read failed")
	}

	values, err := r.abi.Unpack("tasks", output)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindChainUnavailable, err, "failed to decode task registry entry")
	}

	info := &TaskInfo{
		TaskID:          taskID,
		Creator:         values[0].(common.Address),
		RewardPerFollow: values[3].(*big.Int),
		RewardPerLike:   values[4].(*big.Int),
		RewardPerRecast: values[5].(*big.Int),
		Token:           values[12].(common.Address),
		Budget:          values[13].(*big.Int),
		EndTime:         values[14].(uint64),
		Paused:          values[15].(bool),
	}

	if info.Creator == (common.Address{}) {
		return nil, apperrors.New(apperrors.KindNotFound, "task %d not found on chain", taskID)
	}

	if r.cacheTTL > 0 {
		r.mu.Lock()
		r.cache[taskID] = cachedTask{info: info, fetchedAt: time.Now()}
		r.mu.Unlock()
	}

	return info, nil
}

// PruneCache drops expired cache entries and returns how many were evicted.
func (r *TaskReader) PruneCache() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for taskID, entry := range r.cache {
		if time.Since(entry.fetchedAt) >= r.cacheTTL {
			delete(r.cache, taskID)
			evicted++
		}
	}
	return evicted
}
