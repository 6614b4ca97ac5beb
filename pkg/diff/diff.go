// Package diff 提供笔记正文的差异摘要与合并工具
package diff

import "github.com/sergi/go-diff/diffmatchpatch"

// Summary 计算两段明文正文的差异摘要,用于冲突展示
func Summary(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// Merge 将本地与远端两份正文合并到共同基线之上
// 只保留新增,丢弃两侧的删除操作,冲突时宁可重复不可丢字
// oursFirst 控制补丁应用顺序,影响交叉编辑时的文本排列
func Merge(base, ours, theirs string, oursFirst bool) (merged string, ok bool) {
	dmp := diffmatchpatch.New()

	oursPatches := dmp.PatchMake(base, additiveDiffs(dmp, base, ours))
	theirsPatches := dmp.PatchMake(base, additiveDiffs(dmp, base, theirs))

	var step string
	var applied1, applied2 []bool
	if oursFirst {
		step, applied1 = dmp.PatchApply(oursPatches, base)
		merged, applied2 = dmp.PatchApply(theirsPatches, step)
	} else {
		step, applied1 = dmp.PatchApply(theirsPatches, base)
		merged, applied2 = dmp.PatchApply(oursPatches, step)
	}

	ok = allApplied(applied1) && allApplied(applied2)
	return merged, ok
}

// additiveDiffs 计算 after 相对 base 的差异,过滤删除操作
func additiveDiffs(dmp *diffmatchpatch.DiffMatchPatch, base, after string) []diffmatchpatch.Diff {
	diffs := dmp.DiffMain(base, after, false)
	kept := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffDelete {
			kept = append(kept, d)
		}
	}
	return kept
}

func allApplied(results []bool) bool {
	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}
