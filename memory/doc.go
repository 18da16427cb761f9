// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package memory 提供团队运行期的双层记忆。
//
// 短期记忆是单次运行内的工作记忆,保存在 Store 内部的切片里,每次
// Kickoff 结束时清空;长期记忆通过 LongTermStore 接口跨运行持久化,
// 自带三个实现:
//
//   - VectorStore:进程内切片 + 余弦相似度,零依赖,默认后端
//   - RedisStore:go-redis 驱动,JSON 条目 + 按写入时间索引的 ZSET
//   - SQLStore:GORM 驱动,支持 sqlite(glebarez 纯 Go)、postgres、mysql
//
// 语义检索统一走"取最近 N 条候选 + 进程内余弦排序"路径,三个后端
// 行为一致;Embedder 负责把文本映射到向量,EmbedBatch 用 errgroup
// 控制并发批量嵌入。OpenLongTerm 按 config.MemoryConfig 选择后端。
package memory
