// Package config 提供 CrewFlow 的配置管理功能。
//
// 包含引擎级配置结构(日志、遥测、记忆后端、重试、限额)、
// 合理默认值,以及"默认值 → YAML 文件 → 环境变量"三级加载器。
// 环境变量前缀默认为 CREWFLOW,例如 CREWFLOW_LOG_LEVEL=debug。
package config
