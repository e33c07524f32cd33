package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Profile 错误：画像不存在（MissingSnapshotData）
//   - Catalog/Users 错误：上游不可用（UpstreamUnavailable）
//   - 其他领域错误
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NOT_SUPPORTED"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "profile"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 判等，使 errors.Is 能匹配包装后的同类错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// Wrap 基于当前错误生成一个携带底层错误的副本。
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Module: e.Module, Err: err}
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleFeature = "feature" // 特征模块
	ModuleProfile = "profile" // 画像模块
	ModuleCatalog = "catalog" // 物品目录
	ModuleUsers   = "users"   // 用户存储
	ModuleRecall  = "recall"  // 召回/排序模块
)

var (
	// ErrProfileNotFound 表示用户没有已持久化的画像向量
	ErrProfileNotFound = NewDomainError(ModuleProfile, ErrorCodeNotFound, "profile: user profile not found")

	// ErrMatrixMissing 表示物品矩阵快照不存在或为空
	ErrMatrixMissing = NewDomainError(ModuleFeature, ErrorCodeNotFound, "feature: item matrix snapshot missing")

	// ErrUserNotFound 表示用户存储中不存在该用户
	ErrUserNotFound = NewDomainError(ModuleUsers, ErrorCodeNotFound, "users: user not found")

	// ErrArticleNotFound 表示目录中找不到该物品
	ErrArticleNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: article not found")

	// ErrCatalogUnavailable 表示物品目录不可达
	ErrCatalogUnavailable = NewDomainError(ModuleCatalog, ErrorCodeUnavailable, "catalog: upstream unavailable")

	// ErrUsersUnavailable 表示用户存储不可达
	ErrUsersUnavailable = NewDomainError(ModuleUsers, ErrorCodeUnavailable, "users: upstream unavailable")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}
