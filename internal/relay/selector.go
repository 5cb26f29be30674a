package relay

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dep2p/go-peerproxy/config"
)

// Selector 执行者选择策略
//
// 契约：返回值一定不等于 requester；candidates 为注册表当前
// 的身份列表（按注册顺序），其中可能包含 requester 本身，
// 实现负责跳过。没有候选时返回 ("", false)。
type Selector interface {
	// Name 返回策略名称
	Name() string

	// Select 从候选身份中挑选一个执行者
	Select(requester string, candidates []string) (string, bool)
}

// NewSelector 按名称创建选择策略
//
// 空名称回退为默认的 first_other。
func NewSelector(name string) (Selector, error) {
	switch name {
	case "", config.SelectorFirstOther:
		return &firstOtherSelector{}, nil
	case config.SelectorRoundRobin:
		return &roundRobinSelector{}, nil
	case config.SelectorRandom:
		return &randomSelector{
			rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, name)
	}
}

// ============================================================================
//                              first_other
// ============================================================================

// firstOtherSelector 取注册顺序中第一个非请求者身份
//
// 无负载均衡、无亲和性的占位策略，与历史行为保持一致。
type firstOtherSelector struct{}

func (s *firstOtherSelector) Name() string { return config.SelectorFirstOther }

func (s *firstOtherSelector) Select(requester string, candidates []string) (string, bool) {
	for _, id := range candidates {
		if id != requester {
			return id, true
		}
	}
	return "", false
}

// ============================================================================
//                              round_robin
// ============================================================================

// roundRobinSelector 在候选身份上轮转
type roundRobinSelector struct {
	mu     sync.Mutex
	cursor int
}

func (s *roundRobinSelector) Name() string { return config.SelectorRoundRobin }

func (s *roundRobinSelector) Select(requester string, candidates []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(candidates)
	if n == 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		id := candidates[(s.cursor+i)%n]
		if id != requester {
			s.cursor = (s.cursor + i + 1) % n
			return id, true
		}
	}
	return "", false
}

// ============================================================================
//                              random
// ============================================================================

// randomSelector 随机挑选非请求者身份
type randomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *randomSelector) Name() string { return config.SelectorRandom }

func (s *randomSelector) Select(requester string, candidates []string) (string, bool) {
	others := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id != requester {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return others[s.rng.Intn(len(others))], true
}
