package store

// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//   var s core.Store = NewMemoryStore()
//   profiles := profile.NewKVStore(s, "artrec")
