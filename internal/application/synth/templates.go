package synth

import "github.com/doeshing/promptmate/internal/domain"

const defaultDomain = "전문"

var roleTemplates = map[domain.CognitiveGoal]string{
	domain.GoalKnow:  "당신은 %s 전문가입니다. 정확하고 이해하기 쉬운 설명을 제공합니다.",
	domain.GoalDo:    "당신은 %s 문제 해결 전문가입니다. 실용적이고 검증된 해결책을 제시합니다.",
	domain.GoalMake:  "당신은 %s 창작 전문가입니다. 창의적이면서도 구조화된 결과물을 생성합니다.",
	domain.GoalLearn: "당신은 %s 교육 전문가입니다. 단계적이고 체계적인 학습 자료를 제공합니다.",
}

var formatTemplates = map[domain.CognitiveGoal]string{
	domain.GoalKnow:  "설명은 핵심 개념 → 상세 내용 → 예시 순으로 구성하세요.",
	domain.GoalDo:    "해결책은 문제 분석 → 해결 방법 → 구현 단계 → 검증 방법 순으로 작성하세요.",
	domain.GoalMake:  "결과물은 구조화되고 완성도가 높아야 하며, 필요시 여러 버전을 제시하세요.",
	domain.GoalLearn: "학습 자료는 1) 개념 소개 2) 예시 3) 연습 문제 4) 요약 순으로 구성하세요.",
}

var taskVerbs = map[domain.CognitiveGoal]string{
	domain.GoalKnow:  "설명하고 분석하세요",
	domain.GoalDo:    "해결하고 구현하세요",
	domain.GoalMake:  "생성하고 작성하세요",
	domain.GoalLearn: "가르치고 안내하세요",
}

var expertiseGuidance = map[string]string{
	"초보": "초보자를 위해 전문 용어를 최소화하고 기본 개념부터 설명하세요",
	"중급": "중급 수준으로 적절한 깊이와 실용적인 예시를 제공하세요",
	"고급": "고급 사용자를 위해 심화 내용과 최적화 기법을 포함하세요",
}

var purposeGuidance = map[string]string{
	"개인 학습용": "개인 학습에 적합하도록 이해 중심으로 작성하세요",
	"업무용":    "업무에 바로 적용 가능하도록 실용적으로 작성하세요",
	"발표/공유용": "발표나 공유를 고려하여 형식을 갖추어 작성하세요",
}

var specificityInstructions = map[domain.SpecificityLevel]string{
	domain.SpecificityShort: `1-2문장으로 핵심만 간단히 답변하세요.
- 불필요한 설명 제거
- 가장 중요한 정보만 포함`,
	domain.SpecificityConcise: `3-5문장으로 요약하여 답변하세요.
- 핵심 내용 중심
- 간단한 예시 1개 포함 (필요시)
- 군더더기 없이 명확하게`,
	domain.SpecificityNormal: `적당한 설명과 예시를 포함하여 답변하세요.
- 주요 개념 설명
- 실용적인 예시 1-2개
- 이해하기 쉬운 구조`,
	domain.SpecificityDetailed: `상세한 설명과 여러 예시를 포함하여 답변하세요.
- 깊이 있는 설명
- 다양한 예시 3개 이상
- 단계별 설명 (필요시)
- 배경 정보와 맥락 포함`,
	domain.SpecificityVeryDetailed: `매우 깊이 있고 포괄적으로 답변하세요.
- 철저하고 상세한 분석
- 다양한 관점과 접근법
- 풍부한 예시 5개 이상
- 모든 관련 세부사항 포함
- 장단점, 고려사항, 주의점 등 포함
- 추가 학습 자료나 참고사항 언급`,
}
